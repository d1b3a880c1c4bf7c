// AngelaMos | 2026
// sink.go

package testutil

import (
	"context"
	"sync"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
)

type Event struct {
	Name   string
	UserID int64
	Props  analytics.Properties
}

type Sink struct {
	mu     sync.Mutex
	events []Event
}

func (s *Sink) Track(_ context.Context, event string, userID int64, props analytics.Properties) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Name: event, UserID: userID, Props: props})
}

func (s *Sink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Name)
	}
	return out
}

func (s *Sink) Find(name string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.Name == name {
			return e, true
		}
	}
	return Event{}, false
}

var _ analytics.Sink = (*Sink)(nil)
