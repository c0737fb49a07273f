package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Channel names how a code reached the user.
type Channel string

const (
	ChannelEcho Channel = "echo"
	ChannelSMS  Channel = "sms"
)

// Delivery is the receipt for a sent code. Code is set only for echo delivery.
type Delivery struct {
	Channel Channel
	Code    string
}

// Sender delivers a code to a phone.
type Sender interface {
	Send(ctx context.Context, phone, code string) (Delivery, error)
}

// EchoSender hands the code back to the caller for display.
type EchoSender struct{}

func (EchoSender) Send(_ context.Context, _ string, code string) (Delivery, error) {
	return Delivery{Channel: ChannelEcho, Code: code}, nil
}

const (
	defaultSMSLocalURL = "https://www.smslocal.com/dev/bulkV2"
	defaultSMSTimeout  = 15 * time.Second
)

// SMSLocalSender delivers codes through the SMS Local OTP route.
type SMSLocalSender struct {
	APIKey     string
	BaseURL    string
	SenderID   string
	HTTPClient *http.Client
}

// NewSMSLocalSender returns a sender using apiKey and optional base URL/sender ID.
func NewSMSLocalSender(apiKey, baseURL, senderID string) *SMSLocalSender {
	if baseURL == "" {
		baseURL = defaultSMSLocalURL
	}
	return &SMSLocalSender{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		SenderID:   senderID,
		HTTPClient: &http.Client{Timeout: defaultSMSTimeout},
	}
}

type smsLocalRequest struct {
	Route     string `json:"route"`
	Numbers   string `json:"numbers"`
	Variables string `json:"variables"`
	SenderID  string `json:"sender_id,omitempty"`
}

// Send posts the code to SMS Local. The code is never logged or returned.
func (c *SMSLocalSender) Send(ctx context.Context, phone, code string) (Delivery, error) {
	if c.APIKey == "" {
		return Delivery{}, fmt.Errorf("sms: API key not configured")
	}
	raw, err := json.Marshal(smsLocalRequest{
		Route:     "otp",
		Numbers:   phone,
		Variables: code,
		SenderID:  c.SenderID,
	})
	if err != nil {
		return Delivery{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return Delivery{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Delivery{}, fmt.Errorf("sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Delivery{}, fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return Delivery{Channel: ChannelSMS}, nil
}
