package session

import (
	"context"
	"errors"
	"time"
)

// DefaultName is the session created implicitly for a conversation's first
// message.
const DefaultName = "principal"

var (
	// ErrNoActiveSession indicates the conversation has no active session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionNotFound indicates a session-by-name lookup failed.
	ErrSessionNotFound = errors.New("session not found")
)

// TurnRole identifies the author of a stored turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Session is a named, activatable context thread scoped to one conversation.
// At most one session per conversation is active at a time.
type Session struct {
	ID             uint
	PublicID       string
	ConversationID string
	Name           string
	Active         bool
	Summary        *string
	LastActiveAt   time.Time
	CreatedAt      time.Time
}

// Turn is one stored message within a session's history.
type Turn struct {
	ID        uint
	SessionID uint
	Role      TurnRole
	Content   string
	CreatedAt time.Time
}

// Repository persists sessions. Activation transitions for a conversation
// must be applied atomically so the single-active invariant cannot be
// observed half-applied.
type Repository interface {
	// FindActive returns the conversation's active session or
	// ErrNoActiveSession.
	FindActive(ctx context.Context, conversationID string) (*Session, error)
	// FindByName returns the named session or ErrSessionNotFound.
	FindByName(ctx context.Context, conversationID, name string) (*Session, error)
	// CreateOrReactivate deactivates any active session for the
	// conversation and makes the named one active, creating it if needed.
	// A name collision reactivates the existing row.
	CreateOrReactivate(ctx context.Context, conversationID, name string) (*Session, error)
	// Activate deactivates the current active session and activates the
	// named one. Returns ErrSessionNotFound if no such session exists.
	Activate(ctx context.Context, conversationID, name string) (*Session, error)
	// Close marks the session inactive. Content is kept.
	Close(ctx context.Context, sessionID uint) error
	// SaveSummary replaces the session's stored summary.
	SaveSummary(ctx context.Context, sessionID uint, summary string) error
	// Reset deletes the session's turns and clears its summary without
	// changing its active state or name.
	Reset(ctx context.Context, sessionID uint) error
	// List returns the conversation's sessions, most recently active first.
	List(ctx context.Context, conversationID string) ([]Session, error)
}

// TurnRepository persists turns. Retrieval order is created_at then id
// ascending; created_at alone is not guaranteed unique.
type TurnRepository interface {
	// Append stores a turn and refreshes the owning session's
	// last-active timestamp in the same transaction.
	Append(ctx context.Context, sessionID uint, role TurnRole, content string) (*Turn, error)
	ListBySession(ctx context.Context, sessionID uint) ([]Turn, error)
	Count(ctx context.Context, sessionID uint) (int64, error)
	// DeleteAllButLast removes every turn except the most recent keep,
	// using the persisted retrieval order.
	DeleteAllButLast(ctx context.Context, sessionID uint, keep int) error
}
