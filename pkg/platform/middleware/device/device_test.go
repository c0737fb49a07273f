package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/requestcontext"
)

func TestDeviceMiddleware(t *testing.T) {
	var seen id.DeviceID
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.DeviceID(r.Context())
	}))

	t.Run("mints cookie when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieName, cookies[0].Name)
		assert.Equal(t, seen.String(), cookies[0].Value)
		assert.False(t, seen.IsNil())
	})

	t.Run("reuses valid cookie", func(t *testing.T) {
		existing := id.NewDeviceID()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: existing.String()})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, existing, seen)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("replaces malformed cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Len(t, rec.Result().Cookies(), 1)
		assert.False(t, seen.IsNil())
	})
}
