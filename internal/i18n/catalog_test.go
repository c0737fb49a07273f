package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllLocalesPresent(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	for _, lang := range Languages {
		assert.True(t, c.Has(lang.Code, "common.back"), "locale %s has common.back", lang.Code)
		assert.True(t, c.Has(lang.Code, "header.getStarted"), "locale %s has header.getStarted", lang.Code)
	}
}

func TestT(t *testing.T) {
	c := MustLoad()

	t.Run("nested keys are flattened", func(t *testing.T) {
		assert.Equal(t, "Aadhaar OTP", c.T(English, "kyc.methods.aadhaar.title", nil))
	})

	t.Run("locale text wins when present", func(t *testing.T) {
		assert.Equal(t, "पीछे जाएं", c.T(Hindi, "common.back", nil))
		assert.Equal(t, "பின்னால் செல்", c.T(Tamil, "common.back", nil))
	})

	t.Run("missing key falls back to english per key", func(t *testing.T) {
		assert.False(t, c.Has(Bengali, "otp.invalidPhone"))
		assert.Equal(t, "Please enter a valid 10-digit phone number", c.T(Bengali, "otp.invalidPhone", nil))
	})

	t.Run("unknown key returns the key", func(t *testing.T) {
		assert.Equal(t, "no.such.key", c.T(Hindi, "no.such.key", nil))
	})

	t.Run("placeholders interpolate", func(t *testing.T) {
		assert.Equal(t, "Step 2 of 3", c.T(English, "kyc.step", map[string]string{"current": "2", "total": "3"}))
		assert.Equal(t, "Maximum file size is 5MB", c.T(English, "errors.maxFileSize", map[string]string{"size": "5MB"}))
	})

	t.Run("unknown placeholders are left untouched", func(t *testing.T) {
		assert.Equal(t, "Step {{current}} of 3", c.T(English, "kyc.step", map[string]string{"total": "3"}))
	})
}

func TestTable_MergesFallback(t *testing.T) {
	c := MustLoad()
	table := c.Table(Marathi)
	assert.Equal(t, "मागे जा", table["common.back"])
	assert.Equal(t, "Passport", table["documents.passport"])
	assert.Len(t, table, len(c.Keys()))
}

func TestParseLocale(t *testing.T) {
	l, err := ParseLocale(" HI ")
	require.NoError(t, err)
	assert.Equal(t, Hindi, l)

	_, err = ParseLocale("fr")
	assert.Error(t, err)
}
