package sessionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/dbschema"
	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/infrastructure/database/transaction"
)

// SessionRepository implements session.Repository on SQLite.
type SessionRepository struct {
	db *transaction.Database
}

var _ session.Repository = (*SessionRepository)(nil)

func NewSessionRepository(db *transaction.Database) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) FindActive(ctx context.Context, conversationID string) (*session.Session, error) {
	var row dbschema.ChatSession
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ? AND active = ?", conversationID, true).
		Order("last_active_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return row.EtoD(), nil
}

func (r *SessionRepository) FindByName(ctx context.Context, conversationID, name string) (*session.Session, error) {
	var row dbschema.ChatSession
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ? AND name = ?", conversationID, name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session by name: %w", err)
	}
	return row.EtoD(), nil
}

// CreateOrReactivate swaps the conversation's active session in one
// transaction. The unique (conversation_id, name) pair turns a name
// collision into a reactivation.
func (r *SessionRepository) CreateOrReactivate(ctx context.Context, conversationID, name string) (*session.Session, error) {
	now := time.Now().UTC()
	err := r.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&dbschema.ChatSession{}).
			Where("conversation_id = ? AND active = ?", conversationID, true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate sessions: %w", err)
		}
		row := &dbschema.ChatSession{
			PublicID:       newPublicID(),
			ConversationID: conversationID,
			Name:           name,
			Active:         true,
			LastActiveAt:   now,
			CreatedAt:      now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}, {Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"active":         true,
				"last_active_at": now,
			}),
		}).Create(row).Error; err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByName(ctx, conversationID, name)
}

// Activate makes the named session the conversation's active one. Unlike
// CreateOrReactivate it never creates a row.
func (r *SessionRepository) Activate(ctx context.Context, conversationID, name string) (*session.Session, error) {
	now := time.Now().UTC()
	err := r.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row dbschema.ChatSession
		err := tx.Where("conversation_id = ? AND name = ?", conversationID, name).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("find session: %w", err)
		}
		if err := tx.Model(&dbschema.ChatSession{}).
			Where("conversation_id = ? AND active = ?", conversationID, true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate sessions: %w", err)
		}
		if err := tx.Model(&dbschema.ChatSession{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{"active": true, "last_active_at": now}).Error; err != nil {
			return fmt.Errorf("activate session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByName(ctx, conversationID, name)
}

func (r *SessionRepository) Close(ctx context.Context, sessionID uint) error {
	if err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.ChatSession{}).
		Where("id = ?", sessionID).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (r *SessionRepository) SaveSummary(ctx context.Context, sessionID uint, summary string) error {
	if err := r.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.ChatSession{}).
		Where("id = ?", sessionID).
		Update("summary", summary).Error; err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Reset wipes the session's content while leaving the row, its name and its
// active flag untouched.
func (r *SessionRepository) Reset(ctx context.Context, sessionID uint) error {
	now := time.Now().UTC()
	return r.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&dbschema.ChatTurn{}).Error; err != nil {
			return fmt.Errorf("delete turns: %w", err)
		}
		if err := tx.Model(&dbschema.ChatSession{}).
			Where("id = ?", sessionID).
			Updates(map[string]interface{}{"summary": nil, "last_active_at": now}).Error; err != nil {
			return fmt.Errorf("clear summary: %w", err)
		}
		return nil
	})
}

func (r *SessionRepository) List(ctx context.Context, conversationID string) ([]session.Session, error) {
	var rows []dbschema.ChatSession
	err := r.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("last_active_at DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]session.Session, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].EtoD())
	}
	return out, nil
}

func newPublicID() string {
	return "sess_" + uuid.NewString()
}
