// Package store keeps wizard sessions in process memory with an idle TTL.
package store

import (
	"context"
	"sync"
	"time"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/platform/sentinel"
)

type entry[V any] struct {
	value    V
	lastSeen time.Time
}

// InMemory maps session IDs to values. Every successful Get counts as
// activity; entries idle for longer than the TTL are expired.
type InMemory[V any] struct {
	mu    sync.Mutex
	items map[id.SessionID]*entry[V]
	ttl   time.Duration
	now   func() time.Time
}

type Option[V any] func(*InMemory[V])

// WithClock overrides time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *InMemory[V]) {
		s.now = now
	}
}

func NewInMemory[V any](ttl time.Duration, opts ...Option[V]) *InMemory[V] {
	s := &InMemory[V]{
		items: make(map[id.SessionID]*entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory[V]) Put(_ context.Context, sessionID id.SessionID, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = &entry[V]{value: v, lastSeen: s.now()}
	return nil
}

// Get returns the value and refreshes its idle timer. Idle entries yield
// sentinel.ErrExpired and stay in place until swept.
func (s *InMemory[V]) Get(_ context.Context, sessionID id.SessionID) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.items[sessionID]
	if !ok {
		return zero, sentinel.ErrNotFound
	}
	now := s.now()
	if s.expired(e, now) {
		return zero, sentinel.ErrExpired
	}
	e.lastSeen = now
	return e.value, nil
}

// Delete removes the entry and returns it.
func (s *InMemory[V]) Delete(_ context.Context, sessionID id.SessionID) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.items[sessionID]
	if !ok {
		return zero, sentinel.ErrNotFound
	}
	delete(s.items, sessionID)
	return e.value, nil
}

// Values returns every live value.
func (s *InMemory[V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]V, 0, len(s.items))
	for _, e := range s.items {
		if !s.expired(e, now) {
			out = append(out, e.value)
		}
	}
	return out
}

// Sweep removes expired entries and returns them so the caller can tear
// them down.
func (s *InMemory[V]) Sweep(_ context.Context) []V {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []V
	for key, e := range s.items {
		if s.expired(e, now) {
			out = append(out, e.value)
			delete(s.items, key)
		}
	}
	return out
}

func (s *InMemory[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *InMemory[V]) expired(e *entry[V], now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}
