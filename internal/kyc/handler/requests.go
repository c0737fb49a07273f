package handler

import (
	"bharatkyc/internal/kyc/service"
	"bharatkyc/pkg/platform/httputil"
)

type navigateRequest struct {
	Path string `json:"path"`
}

type methodRequest struct {
	Method string `json:"method"`
}

type activeDocumentRequest struct {
	Type string `json:"type"`
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

type cameraRequest struct {
	Permission string `json:"permission"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type capabilitiesRequest struct {
	Recognition string `json:"recognition"`
	Synthesis   string `json:"synthesis"`
}

type voiceErrorRequest struct {
	Kind string `json:"kind"`
}

type accessibilityRequest struct {
	Action string `json:"action"`
	Width  int    `json:"width"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	*service.View
}

// viewResponse flattens the session view and adds the step's notice.
type viewResponse struct {
	*service.View
	Notice *httputil.Notice `json:"notice,omitempty"`
}

type assistantResponse struct {
	*service.AssistantView
	Notice *httputil.Notice `json:"notice,omitempty"`
}
