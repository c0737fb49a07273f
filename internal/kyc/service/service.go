// Package service orchestrates wizard sessions: it owns the session store,
// mounts and tears down step state, runs the background timers and records
// metrics, audit events and spans for every step outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/kyc/device"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/metrics"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/wizard"
	"bharatkyc/internal/shell"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/audit"
	"bharatkyc/pkg/platform/sentinel"
	"bharatkyc/pkg/requestcontext"
)

const tracerName = "bharatkyc/internal/kyc/service"

// SessionStore holds live sessions. *store.InMemory[*Session] implements it.
type SessionStore interface {
	Put(ctx context.Context, sessionID id.SessionID, sess *Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) (*Session, error)
	Values() []*Session
	Sweep(ctx context.Context) []*Session
	Len() int
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store     SessionStore
	catalog   *i18n.Catalog
	theme     *shell.Theme
	sender    otp.Sender
	generator otp.Generator
	increment face.IncrementFunc
	metrics   *metrics.Metrics
	auditor   AuditPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	replyDelay time.Duration
	faceTick   time.Duration
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithOTPSender(sender otp.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func WithOTPGenerator(g otp.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithFaceIncrement fixes the processing progress step.
func WithFaceIncrement(f face.IncrementFunc) Option {
	return func(s *Service) { s.increment = f }
}

// WithReplyDelay sets the assistant's thinking time. Zero answers inline.
func WithReplyDelay(d time.Duration) Option {
	return func(s *Service) { s.replyDelay = d }
}

// WithFaceTickInterval sets how often the face driver advances the step.
// Zero disables the driver.
func WithFaceTickInterval(d time.Duration) Option {
	return func(s *Service) { s.faceTick = d }
}

func WithTheme(t *shell.Theme) Option {
	return func(s *Service) { s.theme = t }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store SessionStore, catalog *i18n.Catalog, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		catalog:    catalog,
		sender:     otp.EchoSender{},
		generator:  otp.CryptoGenerator{},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		replyDelay: time.Second,
		faceTick:   100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session at home for a device.
func (s *Service) Create(ctx context.Context, deviceID id.DeviceID, userAgent string, locale i18n.Locale) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Create")
	defer span.End()

	if !locale.IsSupported() {
		locale = i18n.Fallback
	}
	sess := newSession(deviceID, device.ParseUserAgent(userAgent), locale, s.now())
	if err := s.store.Put(ctx, sess.ID, sess); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session"))
	}
	span.SetAttributes(attribute.String("session.id", sess.ID.String()))

	s.metrics.SessionCreated()
	s.emit(ctx, sess, audit.EventSessionCreated, "", "")
	s.logger.InfoContext(ctx, "wizard session created",
		"session_id", sess.ID.String(),
		"device", sess.DeviceLabel,
		"locale", locale,
		"request_id", requestcontext.RequestID(ctx),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	v := s.view(sess)
	return &v, nil
}

// Get renders the session.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*View, error) {
	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Locale is the session's display language, or the fallback when the
// session cannot be read.
func (s *Service) Locale(ctx context.Context, sessionID id.SessionID) i18n.Locale {
	locale := i18n.Fallback
	_ = s.withSession(ctx, sessionID, func(sess *Session) error {
		locale = sess.locale
		return nil
	})
	return locale
}

// End tears the session down. Ending twice reports not found.
func (s *Service) End(ctx context.Context, sessionID id.SessionID) error {
	ctx, span := s.tracer.Start(ctx, "kyc.End")
	defer span.End()

	sess, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return s.fail(span, translateStoreError(err))
	}
	sess.mu.Lock()
	s.emit(ctx, sess, audit.EventSessionEnded, "", "")
	sess.teardown()
	sess.mu.Unlock()

	s.metrics.SessionEnded("closed")
	return nil
}

// Navigate follows a plain link. Only home and the start page are reachable
// this way; later steps are entered through their own actions.
func (s *Service) Navigate(ctx context.Context, sessionID id.SessionID, path string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Navigate")
	defer span.End()

	to, err := wizard.StepForPath(path)
	if err != nil {
		return nil, s.fail(span, err)
	}
	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if to != wizard.StepHome && to != wizard.StepStart {
			return dErrors.New(dErrors.CodeInvalidState, "step is entered through its own action")
		}
		if sess.wizard.Current() == to {
			v = s.view(sess)
			return nil
		}
		if err := s.goTo(ctx, sess, to); err != nil {
			return err
		}
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

// Back returns to the previous step. It is refused while face processing runs.
func (s *Service) Back(ctx context.Context, sessionID id.SessionID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Back")
	defer span.End()

	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.face != nil && !sess.face.CanLeave() {
			return dErrors.New(dErrors.CodeInvalidState, "verification in progress")
		}
		if _, err := sess.wizard.Back(); err != nil {
			return err
		}
		sess.mount(s.increment, s.now())
		s.emit(ctx, sess, audit.EventStepEntered, "back", "")
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

func (s *Service) canGoBack(sess *Session) bool {
	if len(sess.wizard.History()) == 0 {
		return false
	}
	return sess.face == nil || sess.face.CanLeave()
}

// goTo moves the wizard forward and mounts the new step. Caller holds sess.mu.
func (s *Service) goTo(ctx context.Context, sess *Session, to wizard.Step) error {
	if err := sess.wizard.Go(to); err != nil {
		return err
	}
	sess.mount(s.increment, s.now())
	s.emit(ctx, sess, audit.EventStepEntered, "", "")
	if to == wizard.StepSuccess {
		s.emit(ctx, sess, audit.EventReferenceIssued, sess.progress.reference, "")
	}
	return nil
}

// LocaleChanged moves every open session of the device to the new language.
func (s *Service) LocaleChanged(ctx context.Context, deviceID id.DeviceID, locale i18n.Locale) {
	for _, sess := range s.store.Values() {
		sess.mu.Lock()
		if sess.DeviceID == deviceID && !sess.closed {
			sess.locale = locale
		}
		sess.mu.Unlock()
	}
}

// Sweep tears down sessions idle past their TTL and returns how many ended.
func (s *Service) Sweep(ctx context.Context) int {
	expired := s.store.Sweep(ctx)
	for _, sess := range expired {
		sess.mu.Lock()
		s.emit(ctx, sess, audit.EventSessionExpired, "", "idle")
		sess.teardown()
		sess.mu.Unlock()
		s.metrics.SessionEnded("expired")
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "expired wizard sessions swept", "count", len(expired))
	}
	return len(expired)
}

// RunSweeper sweeps on every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Shutdown tears down every open session.
func (s *Service) Shutdown(ctx context.Context) {
	for _, sess := range s.store.Values() {
		if _, err := s.store.Delete(ctx, sess.ID); err != nil {
			continue
		}
		sess.mu.Lock()
		sess.teardown()
		sess.mu.Unlock()
		s.metrics.SessionEnded("closed")
	}
}

// withSession runs fn with the session locked.
func (s *Service) withSession(ctx context.Context, sessionID id.SessionID, fn func(sess *Session) error) error {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return translateStoreError(err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return fn(sess)
}

// requireStep fails unless step is current.
func requireStep(sess *Session, step wizard.Step) error {
	if sess.wizard.Current() != step {
		return dErrors.New(dErrors.CodeInvalidState, "not on the "+string(step)+" step")
	}
	return nil
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "session expired")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

// emit records an audit event for the session's current step.
func (s *Service) emit(ctx context.Context, sess *Session, action audit.AuditEvent, decision, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		SessionID: sess.ID,
		Action:    string(action),
		Step:      string(sess.wizard.Current()),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
		)
	}
}
