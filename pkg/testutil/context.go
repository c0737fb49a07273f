package testutil

import (
	"net/http"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/requestcontext"
)

// WithSessionID adds a wizard session ID to the request context, simulating the
// session middleware. Invalid IDs are ignored.
func WithSessionID(req *http.Request, sessionID string) *http.Request {
	if parsed, err := id.ParseSessionID(sessionID); err == nil {
		return req.WithContext(requestcontext.WithSessionID(req.Context(), parsed))
	}
	return req
}

