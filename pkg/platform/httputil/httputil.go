// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "bharatkyc/pkg/domain-errors"
)

// Notice is a localized, user-facing toast that accompanies an error or a
// successful step outcome.
type Notice struct {
	Status      string `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string  `json:"error"`
	ErrorDescription string  `json:"error_description,omitempty"`
	Notice           *Notice `json:"notice,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error to its HTTP status and JSON envelope.
// Internal errors never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithNotice(w, err, nil)
}

// WriteErrorWithNotice is WriteError plus an optional localized notice.
func WriteErrorWithNotice(w http.ResponseWriter, err error, notice *Notice) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code), Notice: notice}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
