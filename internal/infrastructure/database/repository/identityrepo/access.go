package identityrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
)

func (r *Repository) IsUserAuthorized(ctx context.Context, identifier string) (bool, error) {
	var count int64
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.AuthorizedUser{}).
		Where("identifier = ?", identifier).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user authorization: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) AuthorizeUser(ctx context.Context, identifier string) error {
	row := &dbschema.AuthorizedUser{Identifier: identifier, AddedAt: time.Now().UTC()}
	err := r.db.GetTx(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("authorize user: %w", err)
	}
	return nil
}

func (r *Repository) DeauthorizeUser(ctx context.Context, identifier string) error {
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&dbschema.AuthorizedUser{}).Error
	if err != nil {
		return fmt.Errorf("deauthorize user: %w", err)
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]string, error) {
	var identifiers []string
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.AuthorizedUser{}).
		Order("added_at ASC, identifier ASC").
		Pluck("identifier", &identifiers).Error
	if err != nil {
		return nil, fmt.Errorf("list authorized users: %w", err)
	}
	return identifiers, nil
}

func (r *Repository) IsGroupAuthorized(ctx context.Context, identifier string) (bool, error) {
	var count int64
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.AuthorizedGroup{}).
		Where("identifier = ?", identifier).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check group authorization: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) AuthorizeGroup(ctx context.Context, identifier string) error {
	row := &dbschema.AuthorizedGroup{Identifier: identifier, AddedAt: time.Now().UTC()}
	err := r.db.GetTx(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("authorize group: %w", err)
	}
	return nil
}

func (r *Repository) DeauthorizeGroup(ctx context.Context, identifier string) error {
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&dbschema.AuthorizedGroup{}).Error
	if err != nil {
		return fmt.Errorf("deauthorize group: %w", err)
	}
	return nil
}

func (r *Repository) ListGroups(ctx context.Context) ([]string, error) {
	var identifiers []string
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.AuthorizedGroup{}).
		Order("added_at ASC, identifier ASC").
		Pluck("identifier", &identifiers).Error
	if err != nil {
		return nil, fmt.Errorf("list authorized groups: %w", err)
	}
	return identifiers, nil
}
