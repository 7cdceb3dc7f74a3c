package sessionrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
)

// TurnRepository implements session.TurnRepository on SQLite.
type TurnRepository struct {
	db *transaction.Database
}

var _ session.TurnRepository = (*TurnRepository)(nil)

func NewTurnRepository(db *transaction.Database) *TurnRepository {
	return &TurnRepository{db: db}
}

// Append stores the turn and refreshes the owning session's last_active_at
// in the same transaction, so activity tracking cannot drift from content.
func (r *TurnRepository) Append(ctx context.Context, sessionID uint, role session.TurnRole, content string) (*session.Turn, error) {
	row := &dbschema.ChatTurn{
		SessionID: sessionID,
		Role:      string(role),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		if err := tx.Model(&dbschema.ChatSession{}).
			Where("id = ?", sessionID).
			Update("last_active_at", row.CreatedAt).Error; err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.EtoD(), nil
}

func (r *TurnRepository) ListBySession(ctx context.Context, sessionID uint) ([]session.Turn, error) {
	var rows []dbschema.ChatTurn
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	out := make([]session.Turn, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].EtoD())
	}
	return out, nil
}

func (r *TurnRepository) Count(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.ChatTurn{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return count, nil
}

// DeleteAllButLast keeps the newest keep turns. LIMIT -1 is SQLite's way of
// saying "no limit" when only an offset is wanted.
func (r *TurnRepository) DeleteAllButLast(ctx context.Context, sessionID uint, keep int) error {
	err := r.db.GetTx(ctx).WithContext(ctx).Exec(
		`DELETE FROM chat_turns WHERE id IN (
			SELECT id FROM chat_turns WHERE session_id = ?
			ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, sessionID, keep).Error
	if err != nil {
		return fmt.Errorf("trim turns: %w", err)
	}
	return nil
}
