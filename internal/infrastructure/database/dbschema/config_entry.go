package dbschema

import "time"

// ConfigEntry mirrors the config_entries table, a flat key/value store for
// global overrides such as the persona and temperature.
type ConfigEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (ConfigEntry) TableName() string { return "config_entries" }
