package chat

import (
	"errors"
	"sync"
	"testing"
)

func TestSequencerSerializesPerConversation(t *testing.T) {
	s := NewSequencer()

	const workers = 20
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do("conv-1", func() error {
				// Unsynchronized on purpose; the sequencer is the only
				// thing keeping this race-free.
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("expected %d increments, got %d", workers, counter)
	}
}

func TestSequencerPropagatesError(t *testing.T) {
	s := NewSequencer()
	want := errors.New("boom")

	if err := s.Do("conv-1", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestSequencerReleasesLocks(t *testing.T) {
	s := NewSequencer()

	_ = s.Do("conv-1", func() error { return nil })
	_ = s.Do("conv-2", func() error { return nil })

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.locks) != 0 {
		t.Errorf("expected lock table to be empty, has %d entries", len(s.locks))
	}
}
