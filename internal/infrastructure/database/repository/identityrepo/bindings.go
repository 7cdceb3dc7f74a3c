package identityrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
)

// BotIdentifier returns the empty string when the conversation has no
// binding yet; the caller falls back to the transport hint.
func (r *Repository) BotIdentifier(ctx context.Context, conversationID string) (string, error) {
	var row dbschema.BotBinding
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load bot binding: %w", err)
	}
	return row.BotIdentifier, nil
}

func (r *Repository) SetBotIdentifier(ctx context.Context, conversationID, identifier string) error {
	row := &dbschema.BotBinding{
		ConversationID: conversationID,
		BotIdentifier:  identifier,
		UpdatedAt:      time.Now().UTC(),
	}
	err := r.db.GetTx(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"bot_identifier": row.BotIdentifier,
				"updated_at":     row.UpdatedAt,
			}),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("save bot binding: %w", err)
	}
	return nil
}
