// Package identityrepo persists the authorization sets, linked identities
// and bot bindings the identity resolver reads.
package identityrepo

import (
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/identity"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
)

// Repository implements identity.AccessRepository, identity.LinkRepository
// and identity.BindingRepository on SQLite.
type Repository struct {
	db *transaction.Database
}

var (
	_ identity.AccessRepository  = (*Repository)(nil)
	_ identity.LinkRepository    = (*Repository)(nil)
	_ identity.BindingRepository = (*Repository)(nil)
)

func NewRepository(db *transaction.Database) *Repository {
	return &Repository{db: db}
}
