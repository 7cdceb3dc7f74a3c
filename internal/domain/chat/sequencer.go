package chat

import "sync"

// Sequencer serializes message handling per conversation. Two concurrent
// messages for the same conversation would otherwise race the find-or-create
// path and could both create an active session; messages for different
// conversations proceed in parallel.
type Sequencer struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{locks: make(map[string]*entry)}
}

// Do runs fn while holding the conversation's lock. Locks are dropped from
// the table once no caller holds or waits on them.
func (s *Sequencer) Do(conversationID string, fn func() error) error {
	s.mu.Lock()
	e, ok := s.locks[conversationID]
	if !ok {
		e = &entry{}
		s.locks[conversationID] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	err := fn()
	e.mu.Unlock()

	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.locks, conversationID)
	}
	s.mu.Unlock()
	return err
}
