// Package capability models host (browser) capabilities the steps depend on.
package capability

import (
	"fmt"

	dErrors "bharatkyc/pkg/domain-errors"
)

// Availability is what the host reported for a capability.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	Denied      Availability = "denied"
)

// Parse validates an untrusted availability value.
func Parse(s string) (Availability, error) {
	switch a := Availability(s); a {
	case Available, Unavailable, Denied:
		return a, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown capability state %q", s))
}

// Usable reports whether the capability may be used.
func (a Availability) Usable() bool {
	return a == Available
}
