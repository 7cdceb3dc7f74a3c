package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds database configuration.
type Config struct {
	Path        string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// Connect opens the SQLite database at cfg.Path, creating the parent
// directory when needed. Foreign keys are enforced and writes go through a
// single connection; SQLite has a single writer anyway and serializing here
// avoids SQLITE_BUSY under concurrent conversations.
func Connect(cfg Config) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", cfg.Path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Path).Msg("unable to open database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info().Str("path", cfg.Path).Msg("Successfully connected to database")
	return db, nil
}

// NewDB opens the database at path with defaults suitable for the bot.
func NewDB(path string) (*gorm.DB, error) {
	return Connect(Config{
		Path:        path,
		MaxIdle:     1,
		MaxOpen:     1,
		MaxLifetime: 1 * time.Hour,
		LogLevel:    gormlogger.Silent,
	})
}
