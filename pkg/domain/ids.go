package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "bharatkyc/pkg/domain-errors"
)

// SessionID identifies one wizard session (one browser tab walking the flow).
type SessionID uuid.UUID

// DeviceID identifies a browser across sessions; it keys the locale preference.
type DeviceID uuid.UUID

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id DeviceID) String() string  { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewSessionID mints a random session ID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewDeviceID mints a random device ID.
func NewDeviceID() DeviceID { return DeviceID(uuid.New()) }

// ParseSessionID validates an untrusted session identifier.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

// ParseDeviceID validates an untrusted device identifier.
func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s, "device id")
	return DeviceID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	// Canonical form is 36 chars; anything longer is garbage.
	if len(s) > 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be nil")
	}
	return u, nil
}
