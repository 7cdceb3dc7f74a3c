// Package configrepo persists the flat key/value settings store.
package configrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/settings"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
)

// Repository implements settings.Store on SQLite.
type Repository struct {
	db *transaction.Database
}

var _ settings.Store = (*Repository)(nil)

func NewRepository(db *transaction.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var row dbschema.ConfigEntry
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("key = ?", key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config %q: %w", key, err)
	}
	return row.Value, nil
}

func (r *Repository) Set(ctx context.Context, key, value string) error {
	row := &dbschema.ConfigEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.GetTx(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      row.Value,
				"updated_at": row.UpdatedAt,
			}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}
