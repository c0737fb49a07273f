// Package publisher is the entry point domain services use to record audit
// events. Events are logged and appended to a store, either inline or through
// a buffered worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "bharatkyc/pkg/domain"
	audit "bharatkyc/pkg/platform/audit"
	"bharatkyc/pkg/platform/audit/worker"
)

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. When the buffer is full the event
// is dropped and logged.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

type Publisher struct {
	store      audit.Store
	logger     *slog.Logger
	now        func() time.Time
	bufferSize int

	inbox     chan audit.Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps, logs and records the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	p.log(ctx, event)

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", event.Action)
		}
	}
	return nil
}

// List returns the events recorded for a wizard session.
func (p *Publisher) List(ctx context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	return p.store.ListBySession(ctx, sessionID)
}

// Close drains buffered events. Safe to call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}

func (p *Publisher) log(ctx context.Context, event audit.Event) {
	if p.logger == nil {
		return
	}
	p.logger.InfoContext(ctx, "audit",
		"category", event.Category,
		"action", event.Action,
		"session_id", event.SessionID.String(),
		"step", event.Step,
		"decision", event.Decision,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
}
