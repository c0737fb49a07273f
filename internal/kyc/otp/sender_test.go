package otp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoSender(t *testing.T) {
	d, err := EchoSender{}.Send(context.Background(), "9998887776", "123456")
	require.NoError(t, err)
	assert.Equal(t, ChannelEcho, d.Channel)
	assert.Equal(t, "123456", d.Code)
}

func TestNewSMSLocalSender_Defaults(t *testing.T) {
	s := NewSMSLocalSender("key", "", "")
	assert.Equal(t, defaultSMSLocalURL, s.BaseURL)
	assert.Equal(t, defaultSMSTimeout, s.HTTPClient.Timeout)
}

func TestSMSLocalSender_Send(t *testing.T) {
	var got smsLocalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSMSLocalSender("test-api-key", server.URL, "BKYC")
	d, err := s.Send(context.Background(), "9998887776", "654321")
	require.NoError(t, err)

	assert.Equal(t, ChannelSMS, d.Channel)
	assert.Empty(t, d.Code, "sms delivery never echoes the code")
	assert.Equal(t, "otp", got.Route)
	assert.Equal(t, "9998887776", got.Numbers)
	assert.Equal(t, "654321", got.Variables)
	assert.Equal(t, "BKYC", got.SenderID)
}

func TestSMSLocalSender_Errors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := (&SMSLocalSender{}).Send(context.Background(), "9998887776", "1")
		assert.Error(t, err)
	})

	t.Run("non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		_, err := NewSMSLocalSender("k", server.URL, "").Send(context.Background(), "9998887776", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=502")
	})
}
