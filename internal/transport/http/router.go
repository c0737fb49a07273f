// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, the ops endpoints and every domain handler.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bharatkyc/internal/platform/metrics"
	ratelimit "bharatkyc/internal/ratelimit/middleware"
	"bharatkyc/pkg/platform/httputil"
	"bharatkyc/pkg/platform/middleware/device"
	"bharatkyc/pkg/platform/middleware/metadata"
	request "bharatkyc/pkg/platform/middleware/request"
	"bharatkyc/pkg/platform/middleware/requesttime"
)

// RequestTimeout bounds every request's context.
const RequestTimeout = 30 * time.Second

// Registrar is implemented by domain handlers.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker is a dependency probed by /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies are the cross-cutting pieces the router wires in.
type Dependencies struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	RateLimit    *ratelimit.Middleware
	SecureCookie bool
	// Checks are probed by /health, keyed by component name.
	Checks map[string]HealthChecker
	// MetricsHandler serves /metrics; nil uses the default registry.
	MetricsHandler http.Handler
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// NewRouter builds the root router. Ops endpoints sit outside the rate limit
// and the device cookie.
func NewRouter(deps Dependencies, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.Logger(deps.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if deps.Metrics != nil {
		r.Use(request.Latency(deps.Metrics, routePattern))
	}

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Get("/health", healthHandler(deps.Checks))
	r.Handle("/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(RequestTimeout))
		r.Use(device.Middleware(deps.SecureCookie))
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.RateLimit)
		}
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Components = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check.Health(r.Context()); err != nil {
				resp.Components[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
