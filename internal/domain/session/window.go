package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Summarizer condenses a block of rendered conversation text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// TxRunner runs fn inside a single storage transaction. Repository calls made
// with the context fn receives join that transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WindowConfig bounds the context window. MaxTurns is both the compaction
// trigger and the cap on history sent for completion; KeepRecentTurns is how
// many turns survive an eviction. The two bounds are independent.
type WindowConfig struct {
	MaxTurns        int
	KeepRecentTurns int
}

// WindowManager maintains a session's turn history under its retention
// bound. Eviction is trigger-then-compact: the stored window may exceed
// MaxTurns between messages and is corrected when the history is next read
// for a completion, so an abandoned conversation never pays for a summary.
type WindowManager struct {
	sessions   Repository
	turns      TurnRepository
	summarizer Summarizer
	tx         TxRunner
	maxTurns   int
	keepRecent int
}

// NewWindowManager creates a window manager. keepRecent can never exceed
// maxTurns, whatever the configuration says; compact slices on the
// difference.
func NewWindowManager(sessions Repository, turns TurnRepository, summarizer Summarizer, tx TxRunner, cfg WindowConfig) *WindowManager {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 18
	}
	if cfg.KeepRecentTurns <= 0 {
		cfg.KeepRecentTurns = 12
	}
	if cfg.KeepRecentTurns > cfg.MaxTurns {
		cfg.KeepRecentTurns = cfg.MaxTurns
	}
	return &WindowManager{
		sessions:   sessions,
		turns:      turns,
		summarizer: summarizer,
		tx:         tx,
		maxTurns:   cfg.MaxTurns,
		keepRecent: cfg.KeepRecentTurns,
	}
}

// LoadContext returns the usable history for a completion request, compacting
// the stored window first when it exceeds MaxTurns. sess.Summary is updated
// in place when compaction replaces it. If summarization fails the eviction
// is skipped entirely and the stored history is left intact for the next
// attempt.
func (m *WindowManager) LoadContext(ctx context.Context, sess *Session) ([]Turn, error) {
	turns, err := m.turns.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	if len(turns) > m.maxTurns {
		if err := m.compact(ctx, sess, turns); err != nil {
			return nil, err
		}
		turns, err = m.turns.ListBySession(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("list turns after compaction: %w", err)
		}
	}

	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	return turns, nil
}

// AppendExchange stores the user turn and the assistant turn as separate rows
// in one transaction, so a storage failure cannot leave a dangling half
// exchange. Each append refreshes the session's last-active timestamp.
func (m *WindowManager) AppendExchange(ctx context.Context, sessionID uint, userText, assistantText string) error {
	return m.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := m.turns.Append(ctx, sessionID, RoleUser, userText); err != nil {
			return fmt.Errorf("append user turn: %w", err)
		}
		if _, err := m.turns.Append(ctx, sessionID, RoleAssistant, assistantText); err != nil {
			return fmt.Errorf("append assistant turn: %w", err)
		}
		return nil
	})
}

// compact summarizes everything but the most recent KeepRecentTurns entries,
// persists the replacement summary, then deletes the evicted turns. The
// previous summary is folded into the summarization input, so each stored
// summary subsumes the last. Deletion never happens without a persisted
// summary.
func (m *WindowManager) compact(ctx context.Context, sess *Session, turns []Turn) error {
	old := turns[:len(turns)-m.keepRecent]

	lines := make([]string, 0, len(old)+1)
	if sess.Summary != nil && *sess.Summary != "" {
		lines = append(lines, *sess.Summary)
	}
	for _, t := range old {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}

	summary, err := m.summarizer.Summarize(ctx, strings.Join(lines, "\n"))
	if err != nil {
		return fmt.Errorf("summarize evicted turns: %w", err)
	}

	if err := m.sessions.SaveSummary(ctx, sess.ID, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	sess.Summary = &summary

	if err := m.turns.DeleteAllButLast(ctx, sess.ID, m.keepRecent); err != nil {
		return fmt.Errorf("delete evicted turns: %w", err)
	}

	log.Ctx(ctx).Debug().
		Uint("session_id", sess.ID).
		Int("evicted", len(old)).
		Int("kept", m.keepRecent).
		Msg("Context window compacted")
	return nil
}
