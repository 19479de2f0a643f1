package trigger

import (
	"context"
	"sync"

	"github.com/lyraio/lyra/internal/types"
)

// recordingSubmitter records submitted events.
type recordingSubmitter struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSubmitter) Submit(_ context.Context, ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSubmitter) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}
