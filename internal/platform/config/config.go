// Package config loads and validates service configuration from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration.
type Server struct {
	// Addr is the listen address (e.g. :8080).
	Addr string `mapstructure:"KYC_ADDR"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// SessionSigningKey signs wizard session tokens (HS256).
	SessionSigningKey string `mapstructure:"SESSION_SIGNING_KEY"`
	// SessionTTL is how long an idle wizard session survives.
	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`
	// SessionSweepInterval is how often expired sessions are torn down.
	SessionSweepInterval time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// RateLimitPerMinute caps requests per client IP; 0 disables throttling.
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	// AssistantReplyDelay is the simulated assistant "thinking" time.
	AssistantReplyDelay time.Duration `mapstructure:"ASSISTANT_REPLY_DELAY"`
	// FaceTickInterval is how often the face step's simulated clock is advanced.
	FaceTickInterval time.Duration `mapstructure:"FACE_TICK_INTERVAL"`

	Redis RedisConfig `mapstructure:",squash"`
	OTP   OTPConfig   `mapstructure:",squash"`
}

// RedisConfig configures the optional Redis-backed locale preference store.
type RedisConfig struct {
	// URL is a redis:// URL; empty keeps preferences in memory.
	URL          string        `mapstructure:"REDIS_URL"`
	PoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`
}

// OTPConfig controls how one-time passcodes reach the user.
type OTPConfig struct {
	// ReturnToClient echoes the generated code in the send response instead of
	// delivering it out-of-band. Must not be true in production.
	ReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// SMSLocalAPIKey enables SMS delivery via SMS Local.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL overrides the SMS Local endpoint.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
}

// Load reads .env (if present), then builds and validates Server from the
// environment. Env vars override .env.
func Load() (*Server, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("KYC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	// Use a default for development - must be overridden in production
	v.SetDefault("SESSION_SIGNING_KEY", "dev-secret-key-change-in-production")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("ASSISTANT_REPLY_DELAY", "1s")
	v.SetDefault("FACE_TICK_INTERVAL", "100ms")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")
	v.SetDefault("OTP_RETURN_TO_CLIENT", true)
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "")

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces cross-field rules.
func (c *Server) Validate() error {
	if c.Addr == "" {
		return errors.New("config: KYC_ADDR must be set")
	}
	if c.OTP.ReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if !c.OTP.ReturnToClient && c.OTP.SMSLocalAPIKey == "" {
		return errors.New("config: SMS_LOCAL_API_KEY is required when OTP_RETURN_TO_CLIENT=false")
	}
	if c.IsProduction() && c.SessionSigningKey == "dev-secret-key-change-in-production" {
		return errors.New("config: SESSION_SIGNING_KEY must be set in production")
	}
	if c.SessionTTL <= 0 || c.SessionSweepInterval <= 0 {
		return errors.New("config: SESSION_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.AssistantReplyDelay < 0 || c.FaceTickInterval <= 0 {
		return errors.New("config: ASSISTANT_REPLY_DELAY must be >= 0 and FACE_TICK_INTERVAL > 0")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Server) IsProduction() bool {
	return c.Env == "production"
}
