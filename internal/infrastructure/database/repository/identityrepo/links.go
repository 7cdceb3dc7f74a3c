package identityrepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm/clause"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
)

func (r *Repository) Link(ctx context.Context, primary, linked string) error {
	row := &dbschema.LinkedIdentity{PrimaryID: primary, LinkedID: linked, AddedAt: time.Now().UTC()}
	err := r.db.GetTx(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("link identities: %w", err)
	}
	return nil
}

func (r *Repository) Unlink(ctx context.Context, primary, linked string) error {
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("(primary_id = ? AND linked_id = ?) OR (primary_id = ? AND linked_id = ?)",
			primary, linked, linked, primary).
		Delete(&dbschema.LinkedIdentity{}).Error
	if err != nil {
		return fmt.Errorf("unlink identities: %w", err)
	}
	return nil
}

// LinkedIdentifiers expands one hop in both directions. The identifier
// itself is always included; results are sorted so callers see a stable
// order.
func (r *Repository) LinkedIdentifiers(ctx context.Context, identifier string) ([]string, error) {
	var rows []dbschema.LinkedIdentity
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("primary_id = ? OR linked_id = ?", identifier, identifier).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load linked identities: %w", err)
	}

	seen := map[string]struct{}{identifier: {}}
	for _, row := range rows {
		seen[row.PrimaryID] = struct{}{}
		seen[row.LinkedID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
