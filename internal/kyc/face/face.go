// Package face implements the face verification step: camera acquisition, a
// capture countdown and simulated processing progress.
package face

//go:generate mockgen -source=camera.go -destination=mocks/mocks.go -package=mocks Camera,Stream

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"bharatkyc/internal/kyc/models"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/sentinel"
)

// Phase is the step's position.
type Phase string

const (
	PhaseInstructions Phase = "instructions"
	PhaseCapture      Phase = "capture"
	PhaseProcessing   Phase = "processing"
	PhaseSuccess      Phase = "success"
)

const (
	CountdownStart = 3
	CountdownTick  = time.Second
	ProgressTick   = 300 * time.Millisecond
	SuccessDelay   = 500 * time.Millisecond
	// CancelLimit is the progress above which processing can no longer be cancelled.
	CancelLimit = 90
)

// IncrementFunc returns the next progress step.
type IncrementFunc func() int

// DefaultIncrement draws uniformly from 5..19.
func DefaultIncrement() int {
	return rand.IntN(15) + 5
}

// Session is the step's state. Time only moves through Advance. Not safe for
// concurrent use.
type Session struct {
	phase     Phase
	progress  int
	countdown int
	counting  bool
	settling  bool
	elapsed   time.Duration
	stream    Stream
	snapshot  *Frame
	closed    bool
	increment IncrementFunc
}

// NewSession mounts the step in instructions. A nil increment uses DefaultIncrement.
func NewSession(increment IncrementFunc) *Session {
	if increment == nil {
		increment = DefaultIncrement
	}
	return &Session{phase: PhaseInstructions, countdown: CountdownStart, increment: increment}
}

func (s *Session) Phase() Phase      { return s.phase }
func (s *Session) Progress() int     { return s.progress }
func (s *Session) Countdown() int    { return s.countdown }
func (s *Session) Counting() bool    { return s.counting }
func (s *Session) HoldsCamera() bool { return s.stream != nil }

// Snapshot is the frame frozen at the end of the countdown, if any.
func (s *Session) Snapshot() *Frame { return s.snapshot }

// CanLeave reports whether navigation away is allowed; it is blocked while processing.
func (s *Session) CanLeave() bool { return s.phase != PhaseProcessing }

// Active reports whether Advance has pending work.
func (s *Session) Active() bool {
	return !s.closed && ((s.phase == PhaseCapture && s.counting) || s.phase == PhaseProcessing)
}

func cameraError(err error) error {
	return &models.NoticeError{
		Err: dErrors.Wrap(err, dErrors.CodePermissionDenied, "camera access not granted"),
		Notice: models.Notice{
			Status:         models.StatusError,
			TitleKey:       "errors.cameraAccess",
			DescriptionKey: "errors.enableCameraPermission",
		},
	}
}

// RequestCamera asks the host for the camera. A refusal keeps instructions
// and reports the camera notice.
func (s *Session) RequestCamera(ctx context.Context, cam Camera) error {
	if s.closed {
		return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidState, "step is closed")
	}
	if s.phase != PhaseInstructions {
		return dErrors.New(dErrors.CodeInvalidState, "camera can only be requested from instructions")
	}
	stream, err := cam.Open(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrDenied) || errors.Is(err, sentinel.ErrUnavailable) {
			return cameraError(err)
		}
		return cameraError(dErrors.Wrap(err, dErrors.CodeUnavailable, "camera failed"))
	}
	s.stream = stream
	s.phase = PhaseCapture
	return nil
}

// PushFrame hands a live frame to a host-fed stream.
func (s *Session) PushFrame(f Frame) error {
	if s.phase != PhaseCapture || s.stream == nil {
		return dErrors.New(dErrors.CodeInvalidState, "camera is not capturing")
	}
	sink, ok := s.stream.(FrameSink)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidState, "camera does not accept frames")
	}
	sink.PushFrame(f)
	return nil
}

// StartCountdown begins the 3-2-1 before the frame grab.
func (s *Session) StartCountdown() error {
	if s.phase != PhaseCapture {
		return dErrors.New(dErrors.CodeInvalidState, "countdown requires an open camera")
	}
	if s.counting {
		return dErrors.New(dErrors.CodeConflict, "countdown already running")
	}
	s.counting = true
	s.countdown = CountdownStart
	s.elapsed = 0
	return nil
}

// StopCamera leaves capture for instructions without re-requesting.
func (s *Session) StopCamera() error {
	if s.phase != PhaseCapture {
		return dErrors.New(dErrors.CodeInvalidState, "camera is not open")
	}
	s.release()
	s.resetToInstructions()
	return nil
}

// Retry releases the camera, resets to instructions and asks for the camera
// again. Allowed in capture before the countdown starts, and in processing
// while progress is at most CancelLimit.
func (s *Session) Retry(ctx context.Context, cam Camera) error {
	if !s.CanRetry() {
		return dErrors.New(dErrors.CodeInvalidState, "retry is not available now")
	}
	s.release()
	s.resetToInstructions()
	return s.RequestCamera(ctx, cam)
}

// CanRetry reports whether Retry is allowed in the current phase.
func (s *Session) CanRetry() bool {
	switch s.phase {
	case PhaseCapture:
		return !s.counting
	case PhaseProcessing:
		return !s.settling && s.progress <= CancelLimit
	}
	return false
}

// Complete confirms the success phase.
func (s *Session) Complete() error {
	if s.phase != PhaseSuccess {
		return dErrors.New(dErrors.CodeInvalidState, "verification has not finished")
	}
	return nil
}

// Close tears the step down: releases a held camera and stops all timers.
// Safe to call more than once.
func (s *Session) Close() {
	s.release()
	s.counting = false
	s.settling = false
	s.closed = true
}

// Advance moves simulated time forward by dt.
func (s *Session) Advance(dt time.Duration) {
	for dt > 0 && !s.closed {
		var tick time.Duration
		switch {
		case s.phase == PhaseCapture && s.counting:
			tick = CountdownTick
		case s.phase == PhaseProcessing && s.settling:
			tick = SuccessDelay
		case s.phase == PhaseProcessing:
			tick = ProgressTick
		default:
			return
		}

		need := tick - s.elapsed
		if dt < need {
			s.elapsed += dt
			return
		}
		dt -= need
		s.elapsed = 0
		s.fire()
	}
}

func (s *Session) fire() {
	switch {
	case s.phase == PhaseCapture:
		s.countdown--
		if s.countdown <= 0 {
			s.grab()
		}
	case s.settling:
		s.settling = false
		s.phase = PhaseSuccess
	default:
		s.progress += s.increment()
		if s.progress >= 100 {
			s.progress = 100
			s.settling = true
		}
	}
}

func (s *Session) grab() {
	if s.stream != nil {
		if f, err := s.stream.Snapshot(); err == nil {
			s.snapshot = &f
		}
	}
	s.release()
	s.counting = false
	s.countdown = 0
	s.progress = 0
	s.phase = PhaseProcessing
}

func (s *Session) release() {
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
}

func (s *Session) resetToInstructions() {
	s.phase = PhaseInstructions
	s.progress = 0
	s.countdown = CountdownStart
	s.counting = false
	s.settling = false
	s.elapsed = 0
	s.snapshot = nil
}
