package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/kyc/assistant"
	"bharatkyc/internal/kyc/document"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/wizard"
	"bharatkyc/internal/shell"
	id "bharatkyc/pkg/domain"
)

// ReferencePrefix starts every reference number.
const ReferencePrefix = "BKYC-"

// Session is one browser tab's pass through the wizard. All fields are
// guarded by mu. Step state exists only while its step is mounted.
type Session struct {
	mu sync.Mutex

	ID          id.SessionID
	DeviceID    id.DeviceID
	DeviceLabel string
	CreatedAt   time.Time

	locale    i18n.Locale
	wizard    *wizard.Wizard
	access    shell.Accessibility
	assistant *assistant.Widget

	// generation changes on every mount; async work captured under an older
	// generation is discarded.
	generation uint64
	closed     bool

	upload        *document.Upload
	otp           *otp.Session
	face          *face.Session
	faceCancel    context.CancelFunc
	faceAttempt   uint64
	faceGrantedAt time.Time

	replyTimer *time.Timer
	speak      *assistant.Utterance
	speakSeq   int

	progress progress
}

// progress is what the flow has produced so far; the success page and
// receipt read it.
type progress struct {
	method      wizard.Method
	documents   []document.Type
	maskedPhone string
	reference   string
	completedAt time.Time
}

func newSession(deviceID id.DeviceID, deviceLabel string, locale i18n.Locale, now time.Time) *Session {
	return &Session{
		ID:          id.NewSessionID(),
		DeviceID:    deviceID,
		DeviceLabel: deviceLabel,
		CreatedAt:   now,
		locale:      locale,
		wizard:      wizard.New(),
		assistant:   assistant.NewWidget(nil),
	}
}

// mount tears down the previous step and builds fresh state for the current
// one. Caller holds mu.
func (s *Session) mount(increment face.IncrementFunc, now time.Time) {
	s.unmount()
	s.generation++

	switch s.wizard.Current() {
	case wizard.StepHome:
		s.progress = progress{}
	case wizard.StepDocumentUpload:
		s.upload = document.NewUpload()
	case wizard.StepOTP:
		s.otp = otp.NewSession()
	case wizard.StepFaceVerification:
		s.face = face.NewSession(increment)
	case wizard.StepSuccess:
		s.progress.reference = newReference()
		s.progress.completedAt = now
	}
}

// unmount discards the mounted step's state, releasing the camera and
// stopping the face driver. Caller holds mu.
func (s *Session) unmount() {
	s.faceAttempt++
	if s.faceCancel != nil {
		s.faceCancel()
		s.faceCancel = nil
	}
	if s.face != nil {
		s.face.Close()
		s.face = nil
	}
	s.upload = nil
	s.otp = nil
	s.faceGrantedAt = time.Time{}
}

// teardown ends the session. Caller holds mu.
func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.unmount()
	s.generation++
	s.assistant.Cancel()
	if s.replyTimer != nil {
		s.replyTimer.Stop()
		s.replyTimer = nil
	}
}

// newReference mints "BKYC-" plus ten upper-case hex digits.
func newReference() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ReferencePrefix + strings.ToUpper(hex[:10])
}
