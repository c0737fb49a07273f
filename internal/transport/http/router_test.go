package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatkyc/internal/platform/metrics"
	ratelimit "bharatkyc/internal/ratelimit/middleware"
	"bharatkyc/internal/ratelimit/store/bucket"
	"bharatkyc/pkg/platform/middleware/device"
	"bharatkyc/pkg/testutil"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

type pingHandler struct{}

func (pingHandler) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func newTestRouter(t *testing.T, limit int, checks map[string]HealthChecker) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Logger:         logger,
		Metrics:        metrics.NewWithRegisterer(reg),
		RateLimit:      ratelimit.New(bucket.NewInMemoryBucketStore(), limit, time.Minute, logger),
		Checks:         checks,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, pingHandler{})
}

func TestHealth(t *testing.T) {
	t.Run("ok without checks", func(t *testing.T) {
		router := newTestRouter(t, 0, nil)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("degraded when a dependency fails", func(t *testing.T) {
		router := newTestRouter(t, 0, map[string]HealthChecker{
			"redis": checkFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		resp := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unavailable", resp.Components["redis"])
	})
}

func TestRouter_DeviceCookieAndRateLimit(t *testing.T) {
	router := newTestRouter(t, 1, nil)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, rr.Header().Get("Set-Cookie"), device.CookieName+"=")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/ping", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "too_many_requests")

	// Ops endpoints are not throttled.
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, 0, nil)
	testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/ping", nil))

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bharat_kyc_http_requests_total")
}
