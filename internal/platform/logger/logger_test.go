package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewWithWriter_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "json").Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"service":"bharat-kyc"`)

	buf.Reset()
	NewWithWriter(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewWithWriter(&buf, "warn", "json").Info("dropped")
	assert.Empty(t, buf.String())
}
