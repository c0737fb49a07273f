// Package wizard is the onboarding flow's finite-state machine: named steps,
// allowed transitions and a back stack.
package wizard

import (
	"fmt"
	"slices"

	dErrors "bharatkyc/pkg/domain-errors"
)

// Step is a wizard state.
type Step string

const (
	StepHome             Step = "home"
	StepStart            Step = "start"
	StepDocumentUpload   Step = "document_upload"
	StepOTP              Step = "otp"
	StepFaceVerification Step = "face_verification"
	StepSuccess          Step = "success"
)

var paths = map[Step]string{
	StepHome:             "/",
	StepStart:            "/kyc/start",
	StepDocumentUpload:   "/kyc/document-upload",
	StepOTP:              "/kyc/otp",
	StepFaceVerification: "/kyc/face-verification",
	StepSuccess:          "/kyc/success",
}

// transitions lists the forward moves; any step may also return home.
var transitions = map[Step][]Step{
	StepHome:             {StepStart},
	StepStart:            {StepDocumentUpload, StepOTP},
	StepDocumentUpload:   {StepFaceVerification},
	StepOTP:              {StepFaceVerification},
	StepFaceVerification: {StepSuccess},
	StepSuccess:          {StepHome},
}

// PathFor returns the route of a step.
func PathFor(s Step) string {
	return paths[s]
}

// StepForPath resolves a route to its step.
func StepForPath(path string) (Step, error) {
	for s, p := range paths {
		if p == path {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown path %q", path))
}

// StepNumber is the "Step n of 3" label for a step; ok is false for steps
// that show none.
func StepNumber(s Step) (current, total int, ok bool) {
	switch s {
	case StepStart:
		return 1, 3, true
	case StepDocumentUpload, StepOTP:
		return 2, 3, true
	case StepFaceVerification:
		return 3, 3, true
	}
	return 0, 0, false
}

// Method is a KYC method offered on the start page.
type Method string

const (
	MethodDigilocker Method = "digilocker"
	MethodDocument   Method = "document"
	MethodAadhaar    Method = "aadhaar"
)

// Methods lists the start page options in display order.
var Methods = []Method{MethodDigilocker, MethodDocument, MethodAadhaar}

// ParseMethod validates an untrusted method name.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !slices.Contains(Methods, m) {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown kyc method %q", s))
	}
	return m, nil
}

// Target is the step a method leads to. Aadhaar goes through OTP; the other
// methods upload documents.
func (m Method) Target() Step {
	if m == MethodAadhaar {
		return StepOTP
	}
	return StepDocumentUpload
}

// Wizard tracks the current step and the back stack. Not safe for concurrent
// use; the owning session serializes access.
type Wizard struct {
	current Step
	history []Step
}

// New starts a wizard at home.
func New() *Wizard {
	return &Wizard{current: StepHome}
}

func (w *Wizard) Current() Step { return w.current }

// History returns a copy of the back stack, oldest first.
func (w *Wizard) History() []Step { return slices.Clone(w.history) }

// CanGo reports whether to is reachable from the current step.
func (w *Wizard) CanGo(to Step) bool {
	if _, ok := paths[to]; !ok {
		return false
	}
	if to == StepHome {
		return w.current != StepHome
	}
	return slices.Contains(transitions[w.current], to)
}

// Go moves forward to another step. Going home starts a fresh flow and
// clears the back stack.
func (w *Wizard) Go(to Step) error {
	if !w.CanGo(to) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("cannot go from %s to %s", w.current, to))
	}
	if to == StepHome {
		w.history = w.history[:0]
	} else {
		w.history = append(w.history, w.current)
	}
	w.current = to
	return nil
}

// Back pops the back stack and returns the step now current.
func (w *Wizard) Back() (Step, error) {
	if len(w.history) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidState, "no previous step")
	}
	last := len(w.history) - 1
	w.current = w.history[last]
	w.history = w.history[:last]
	return w.current, nil
}
