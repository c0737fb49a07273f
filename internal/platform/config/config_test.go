package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KYC_ADDR", ":8080")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, time.Second, cfg.AssistantReplyDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.FaceTickInterval)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.OTP.ReturnToClient, "codes are echoed to the client by default")
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("KYC_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.RateLimitPerMinute)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_OTPEchoRefusedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SIGNING_KEY", "prod-key")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTP_RETURN_TO_CLIENT")
}

func TestLoad_SMSKeyRequiredWithoutEcho(t *testing.T) {
	t.Setenv("OTP_RETURN_TO_CLIENT", "false")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMS_LOCAL_API_KEY")

	t.Setenv("SMS_LOCAL_API_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.OTP.ReturnToClient)
}
