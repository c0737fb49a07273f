package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and capability adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrExpired: session idled past its TTL
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: host capability or backing service not present
//   - ErrDenied: host refused a capability (camera, microphone)
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrDenied       = errors.New("denied")
)
