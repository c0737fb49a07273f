package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bharatkyc/internal/ratelimit/metrics"
	"bharatkyc/internal/ratelimit/models"
	"bharatkyc/pkg/platform/audit"
	"bharatkyc/pkg/platform/httputil"
	"bharatkyc/pkg/requestcontext"
)

type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Middleware struct {
	store    BucketStore
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  AuditPublisher
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the limiter into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditor = p
	}
}

// New limits each client IP to limit requests per window. A non-positive
// limit disables limiting.
func New(store BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if limit <= 0 {
		m.disabled = true
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit rejects clients over their budget with 429 and Retry-After.
// Limiter failures let the request through.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)

		result, err := m.store.Allow(ctx, "ip:"+ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check IP rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			if m.metrics != nil {
				m.metrics.IncrementErrors()
			}
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			m.reject(ctx, w, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(ctx context.Context, w http.ResponseWriter, result *models.RateLimitResult) {
	m.logger.WarnContext(ctx, "rate limit exceeded",
		"retry_after", result.RetryAfter,
		"request_id", requestcontext.RequestID(ctx),
	)
	if m.metrics != nil {
		m.metrics.IncrementRejected()
	}
	if m.auditor != nil {
		_ = m.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventRateLimitExceeded),
			Decision:  "rejected",
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	writeRateLimitExceeded(w, result)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "too_many_requests",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
