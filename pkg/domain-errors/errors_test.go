package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeValidation, "bad phone")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches wrapped domain code", func(t *testing.T) {
		inner := New(CodePermissionDenied, "camera denied")
		outer := Wrap(inner, CodeBadRequest, "face step")
		assert.True(t, HasCode(outer, CodePermissionDenied))
		assert.True(t, HasCode(outer, CodeBadRequest))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeNotFound, "session"))
		assert.True(t, Is(err, CodeNotFound))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeInternal, "nothing"))

	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "save failed")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "save failed: disk full", err.Error())
	assert.Equal(t, "save failed", MessageOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:       http.StatusBadRequest,
		CodeUnauthorized:     http.StatusUnauthorized,
		CodePermissionDenied: http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeInvalidState:     http.StatusConflict,
		CodeTooManyRequests:  http.StatusTooManyRequests,
		CodeInternal:         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), string(code))
	}
}
