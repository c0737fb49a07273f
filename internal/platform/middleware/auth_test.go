package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessionID := id.NewSessionID()

	var got id.SessionID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.SessionID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name      string
		header    string
		validator JWTValidator
		status    int
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", stubValidator{err: errors.New("nope")}, http.StatusUnauthorized},
		{"malformed claim", "Bearer t", stubValidator{claims: &JWTClaims{SessionID: "x"}}, http.StatusUnauthorized},
		{"valid", "Bearer t", stubValidator{claims: &JWTClaims{SessionID: sessionID.String()}}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = id.SessionID{}
			req := httptest.NewRequest(http.MethodGet, "/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			RequireSession(tt.validator, logger)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, sessionID, got)
			} else {
				assert.Contains(t, rr.Body.String(), "unauthorized")
			}
		})
	}
}
