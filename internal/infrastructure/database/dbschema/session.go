package dbschema

import (
	"time"

	"github.com/MDCYT/doctor-scum-whatsapp-bot/internal/domain/session"
)

// ChatSession mirrors the chat_sessions table created by the SQL migrations.
type ChatSession struct {
	ID             uint    `gorm:"primaryKey"`
	PublicID       string  `gorm:"column:public_id;uniqueIndex;not null"`
	ConversationID string  `gorm:"column:conversation_id;uniqueIndex:idx_conversation_name;not null"`
	Name           string  `gorm:"uniqueIndex:idx_conversation_name;not null"`
	Active         bool    `gorm:"not null;default:true"`
	Summary        *string `gorm:"type:text"`
	LastActiveAt   time.Time
	CreatedAt      time.Time
}

func (ChatSession) TableName() string { return "chat_sessions" }

// ChatTurn mirrors the chat_turns table.
type ChatTurn struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"column:session_id;index;not null"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (ChatTurn) TableName() string { return "chat_turns" }

func NewSchemaChatSession(e *session.Session) *ChatSession {
	return &ChatSession{
		ID:             e.ID,
		PublicID:       e.PublicID,
		ConversationID: e.ConversationID,
		Name:           e.Name,
		Active:         e.Active,
		Summary:        e.Summary,
		LastActiveAt:   e.LastActiveAt,
		CreatedAt:      e.CreatedAt,
	}
}

func (s *ChatSession) EtoD() *session.Session {
	return &session.Session{
		ID:             s.ID,
		PublicID:       s.PublicID,
		ConversationID: s.ConversationID,
		Name:           s.Name,
		Active:         s.Active,
		Summary:        s.Summary,
		LastActiveAt:   s.LastActiveAt,
		CreatedAt:      s.CreatedAt,
	}
}

func NewSchemaChatTurn(e *session.Turn) *ChatTurn {
	return &ChatTurn{
		ID:        e.ID,
		SessionID: e.SessionID,
		Role:      string(e.Role),
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func (t *ChatTurn) EtoD() *session.Turn {
	return &session.Turn{
		ID:        t.ID,
		SessionID: t.SessionID,
		Role:      session.TurnRole(t.Role),
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
	}
}
