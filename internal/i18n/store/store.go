// Package store persists the per-device locale preference.
package store

import (
	"context"
	"sync"
	"time"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/platform/sentinel"
)

// PreferenceTTL bounds how long a stored choice survives without being rewritten.
const PreferenceTTL = 365 * 24 * time.Hour

type entry struct {
	locale    string
	expiresAt time.Time
}

// InMemory keeps preferences in a process-local map.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.DeviceID]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemory builds an empty store using PreferenceTTL.
func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[id.DeviceID]entry),
		ttl:     PreferenceTTL,
		now:     time.Now,
	}
}

// Get returns sentinel.ErrNotFound when nothing (unexpired) is stored.
func (s *InMemory) Get(_ context.Context, deviceID id.DeviceID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[deviceID]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", sentinel.ErrNotFound
	}
	return e.locale, nil
}

// Set stores locale for the device, refreshing its TTL.
func (s *InMemory) Set(_ context.Context, deviceID id.DeviceID, locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[deviceID] = entry{locale: locale, expiresAt: s.now().Add(s.ttl)}
	return nil
}
