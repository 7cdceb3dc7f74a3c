package session

import (
	"context"
	"fmt"
	"time"
)

// LifecycleService owns session state transitions for conversations. Reads
// and writes are deliberately separate operations: FindActive never creates,
// CreateDefault never queries first.
type LifecycleService struct {
	repo       Repository
	inactivity time.Duration
}

// NewLifecycleService creates a lifecycle service with the given inactivity
// threshold.
func NewLifecycleService(repo Repository, inactivity time.Duration) *LifecycleService {
	if inactivity <= 0 {
		inactivity = time.Hour
	}
	return &LifecycleService{repo: repo, inactivity: inactivity}
}

// FindActive returns the conversation's active session or ErrNoActiveSession.
func (s *LifecycleService) FindActive(ctx context.Context, conversationID string) (*Session, error) {
	return s.repo.FindActive(ctx, conversationID)
}

// CreateDefault creates (or reactivates) the default session for the
// conversation and makes it active.
func (s *LifecycleService) CreateDefault(ctx context.Context, conversationID string) (*Session, error) {
	return s.CreateNamed(ctx, conversationID, DefaultName)
}

// CreateNamed deactivates any currently active session and activates the
// named one, creating it when it does not exist yet.
func (s *LifecycleService) CreateNamed(ctx context.Context, conversationID, name string) (*Session, error) {
	sess, err := s.repo.CreateOrReactivate(ctx, conversationID, name)
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", name, err)
	}
	return sess, nil
}

// ActivateNamed switches the conversation to an existing session. Returns
// ErrSessionNotFound when no session with that name exists.
func (s *LifecycleService) ActivateNamed(ctx context.Context, conversationID, name string) (*Session, error) {
	return s.repo.Activate(ctx, conversationID, name)
}

// Close deactivates the session without deleting its content.
func (s *LifecycleService) Close(ctx context.Context, sessionID uint) error {
	return s.repo.Close(ctx, sessionID)
}

// ResetContent purges the session's turns and summary. The session stays
// active under its current name.
func (s *LifecycleService) ResetContent(ctx context.Context, sessionID uint) error {
	return s.repo.Reset(ctx, sessionID)
}

// List returns the conversation's sessions, most recently active first.
func (s *LifecycleService) List(ctx context.Context, conversationID string) ([]Session, error) {
	return s.repo.List(ctx, conversationID)
}

// Expired reports whether the session has been idle past the inactivity
// threshold. An expired session must be closed and the triggering message
// must not produce a reply.
func (s *LifecycleService) Expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastActiveAt) > s.inactivity
}

// InactivityThreshold returns the configured idle cutoff.
func (s *LifecycleService) InactivityThreshold() time.Duration {
	return s.inactivity
}
