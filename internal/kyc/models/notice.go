package models

import (
	"errors"

	dErrors "bharatkyc/pkg/domain-errors"
)

// NoticeStatus mirrors toast severities.
type NoticeStatus string

const (
	StatusSuccess NoticeStatus = "success"
	StatusError   NoticeStatus = "error"
	StatusInfo    NoticeStatus = "info"
)

// Notice is a transient, user-facing message expressed as translation keys.
// It is localized at the transport edge.
type Notice struct {
	Status         NoticeStatus
	TitleKey       string
	DescriptionKey string
	Vars           map[string]string
	// Description overrides DescriptionKey with literal text (e.g. an echoed OTP).
	Description string
}

// NoticeError is a domain error that carries the notice to show the user.
type NoticeError struct {
	Err    error
	Notice Notice
}

func (e *NoticeError) Error() string { return e.Err.Error() }
func (e *NoticeError) Unwrap() error { return e.Err }

// NewNoticeError builds a coded error with an error-status notice.
func NewNoticeError(code dErrors.Code, msg, titleKey, descriptionKey string, vars map[string]string) error {
	return &NoticeError{
		Err: dErrors.New(code, msg),
		Notice: Notice{
			Status:         StatusError,
			TitleKey:       titleKey,
			DescriptionKey: descriptionKey,
			Vars:           vars,
		},
	}
}

// NoticeOf extracts the notice from err, if any.
func NoticeOf(err error) (Notice, bool) {
	var ne *NoticeError
	if errors.As(err, &ne) {
		return ne.Notice, true
	}
	return Notice{}, false
}
