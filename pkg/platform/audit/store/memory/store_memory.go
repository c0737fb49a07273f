package memory

import (
	"context"
	"sync"

	id "bharatkyc/pkg/domain"
	audit "bharatkyc/pkg/platform/audit"
)

// DefaultCapacity bounds the ring when no capacity is given.
const DefaultCapacity = 4096

// InMemoryStore keeps the most recent events in a fixed-size ring. The oldest
// event is overwritten once the ring is full.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	next   int
	full   bool
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{events: make([]audit.Event, capacity)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.events)
	s.next = 0
	s.full = false
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *InMemoryStore) ListBySession(_ context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.ordered() {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns up to limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.ordered()
	start := max(len(all)-limit, 0)
	return all[start:], nil
}

// ordered returns the ring's contents in insertion order. Caller holds the lock.
func (s *InMemoryStore) ordered() []audit.Event {
	if !s.full {
		return append([]audit.Event{}, s.events[:s.next]...)
	}
	out := make([]audit.Event, 0, len(s.events))
	out = append(out, s.events[s.next:]...)
	return append(out, s.events[:s.next]...)
}
