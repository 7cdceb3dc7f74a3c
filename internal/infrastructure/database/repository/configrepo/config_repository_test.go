package configrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/settings"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(transaction.NewDatabase(db))
}

func TestGetAbsentKeyReturnsEmpty(t *testing.T) {
	repo := newTestRepo(t)

	value, err := repo.Get(context.Background(), settings.KeyPersona)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "" {
		t.Errorf("expected empty value, got %q", value)
	}
}

func TestSetOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, settings.KeyTemperature, "0.7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, settings.KeyTemperature, "0.3"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, err := repo.Get(ctx, settings.KeyTemperature)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "0.3" {
		t.Errorf("expected overwritten value, got %q", value)
	}
}
