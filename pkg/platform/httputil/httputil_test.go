package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "bharatkyc/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description and notice", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorWithNotice(w, dErrors.New(dErrors.CodeValidation, "invalid phone"),
			&Notice{Status: "error", Title: "Please enter a valid 10-digit phone number"})

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Error != "validation_error" {
			t.Fatalf("expected error code validation_error, got %q", body.Error)
		}
		if body.ErrorDescription != "invalid phone" {
			t.Fatalf("expected error_description to be returned for validation errors")
		}
		if body.Notice == nil || body.Notice.Title == "" {
			t.Fatalf("expected notice in body")
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"1","extra":true}`))
		var v struct {
			Phone string `json:"phone"`
		}
		err := DecodeJSON(r, &v)
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
	})

	t.Run("decodes known fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"9998887776"}`))
		var v struct {
			Phone string `json:"phone"`
		}
		if err := DecodeJSON(r, &v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Phone != "9998887776" {
			t.Fatalf("unexpected phone %q", v.Phone)
		}
	})
}
