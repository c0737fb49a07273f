package service

import (
	"context"
	"time"

	"bharatkyc/internal/kyc/capability"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/wizard"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/audit"
)

// RequestCamera opens the camera with the permission state the browser
// reported. A refusal keeps the instructions phase and returns the camera notice.
func (s *Service) RequestCamera(ctx context.Context, sessionID id.SessionID, rawAvailability string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.RequestCamera")
	defer span.End()

	availability, err := capability.Parse(rawAvailability)
	if err != nil {
		return nil, s.fail(span, err)
	}
	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		if err := sess.face.RequestCamera(ctx, face.HostCamera{Availability: availability}); err != nil {
			if dErrors.HasCode(err, dErrors.CodePermissionDenied) {
				s.emit(ctx, sess, audit.EventCameraDenied, string(availability), "")
			}
			return err
		}
		sess.faceGrantedAt = s.now()
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

// PushFrame stores the latest frame from the browser's video feed.
func (s *Service) PushFrame(ctx context.Context, sessionID id.SessionID, frame face.Frame) error {
	return s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		return sess.face.PushFrame(frame)
	})
}

// StartCapture begins the countdown. The face driver then runs the
// countdown, the frame grab and processing on its own.
func (s *Service) StartCapture(ctx context.Context, sessionID id.SessionID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.StartCapture")
	defer span.End()

	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		if err := sess.face.StartCountdown(); err != nil {
			return err
		}
		s.startFaceDriver(sess)
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

// RetryFace throws away the current attempt and asks for the camera again.
func (s *Service) RetryFace(ctx context.Context, sessionID id.SessionID, rawAvailability string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.RetryFace")
	defer span.End()

	availability, err := capability.Parse(rawAvailability)
	if err != nil {
		return nil, s.fail(span, err)
	}
	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		if !sess.face.CanRetry() {
			return dErrors.New(dErrors.CodeInvalidState, "retry is not available now")
		}
		s.stopFaceDriver(sess)
		sess.faceGrantedAt = time.Time{}
		if err := sess.face.Retry(ctx, face.HostCamera{Availability: availability}); err != nil {
			if dErrors.HasCode(err, dErrors.CodePermissionDenied) {
				s.emit(ctx, sess, audit.EventCameraDenied, string(availability), "retry")
			}
			return err
		}
		sess.faceGrantedAt = s.now()
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

// StopCamera releases the camera and returns to the instructions.
func (s *Service) StopCamera(ctx context.Context, sessionID id.SessionID) (*View, error) {
	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		if err := sess.face.StopCamera(); err != nil {
			return err
		}
		s.stopFaceDriver(sess)
		sess.faceGrantedAt = time.Time{}
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CompleteFace confirms a finished verification and moves to the success page.
func (s *Service) CompleteFace(ctx context.Context, sessionID id.SessionID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.CompleteFace")
	defer span.End()

	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		if err := sess.face.Complete(); err != nil {
			return err
		}
		if !sess.faceGrantedAt.IsZero() {
			s.metrics.ObserveFaceCompletion(s.now().Sub(sess.faceGrantedAt))
		}
		if err := s.goTo(ctx, sess, wizard.StepSuccess); err != nil {
			return err
		}
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &v, nil
}

// faceDriver identifies one run of the face timers. Ticks from any other run
// are ignored.
type faceDriver struct {
	generation uint64
	attempt    uint64
}

// startFaceDriver runs the step's timers in the background until the face
// session goes idle or the step is unmounted. Caller holds sess.mu.
func (s *Service) startFaceDriver(sess *Session) {
	s.stopFaceDriver(sess)
	if s.faceTick <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess.faceCancel = cancel
	driver := faceDriver{generation: sess.generation, attempt: sess.faceAttempt}
	go face.Drive(ctx, s.faceTick, func(dt time.Duration) bool {
		return s.advanceFace(sess, driver, dt)
	})
}

// stopFaceDriver cancels a running driver and retires its attempt, so a tick
// already in flight finds nothing to advance. Caller holds sess.mu.
func (s *Service) stopFaceDriver(sess *Session) {
	sess.faceAttempt++
	if sess.faceCancel != nil {
		sess.faceCancel()
		sess.faceCancel = nil
	}
}

// currentFaceDriver is the run a tick must belong to. Caller holds sess.mu.
func currentFaceDriver(sess *Session) faceDriver {
	return faceDriver{generation: sess.generation, attempt: sess.faceAttempt}
}

// advanceFace moves the face session forward by dt and records phase changes.
// It reports whether the driver should keep running.
func (s *Service) advanceFace(sess *Session, driver faceDriver, dt time.Duration) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed || sess.face == nil || currentFaceDriver(sess) != driver {
		return false
	}

	before := sess.face.Phase()
	sess.face.Advance(dt)
	after := sess.face.Phase()

	if before != after {
		ctx := context.Background()
		switch after {
		case face.PhaseProcessing:
			s.metrics.IncrementFaceCapture()
			s.emit(ctx, sess, audit.EventFaceCaptured, "", "")
		case face.PhaseSuccess:
			s.emit(ctx, sess, audit.EventFaceCompleted, "", "")
		}
	}
	return sess.face.Active()
}
