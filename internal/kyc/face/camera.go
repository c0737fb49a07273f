package face

import (
	"context"
	"sync"

	"bharatkyc/internal/kyc/capability"
	"bharatkyc/pkg/platform/sentinel"
)

// Frame is one still image from the video feed.
type Frame struct {
	MediaType string
	Data      []byte
}

// Camera acquires the video device. Open returns sentinel.ErrDenied or
// sentinel.ErrUnavailable when the host refuses.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is a held camera handle. Release must be called exactly once.
type Stream interface {
	Snapshot() (Frame, error)
	Release()
}

// FrameSink is implemented by streams fed by the host.
type FrameSink interface {
	PushFrame(Frame)
}

// HostCamera opens streams according to what the browser reported for its
// getUserMedia permission.
type HostCamera struct {
	Availability capability.Availability
}

func (c HostCamera) Open(context.Context) (Stream, error) {
	switch c.Availability {
	case capability.Available:
		return &HostStream{}, nil
	case capability.Denied:
		return nil, sentinel.ErrDenied
	default:
		return nil, sentinel.ErrUnavailable
	}
}

// HostStream keeps the latest frame posted by the browser.
type HostStream struct {
	mu       sync.Mutex
	latest   *Frame
	released bool
}

func (s *HostStream) PushFrame(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.latest = &f
}

// Snapshot returns the latest frame; sentinel.ErrNotFound if none arrived.
func (s *HostStream) Snapshot() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Frame{}, sentinel.ErrNotFound
	}
	return *s.latest, nil
}

func (s *HostStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.latest = nil
}

// Released reports whether the handle has been given back.
func (s *HostStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
