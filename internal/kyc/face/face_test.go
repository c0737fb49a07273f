package face_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"bharatkyc/internal/kyc/capability"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/face/mocks"
	"bharatkyc/internal/kyc/models"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/sentinel"
)

type FaceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	camera  *mocks.MockCamera
	stream  *mocks.MockStream
	session *face.Session
	ctx     context.Context
}

func TestFaceSuite(t *testing.T) {
	suite.Run(t, new(FaceSuite))
}

func (s *FaceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.camera = mocks.NewMockCamera(s.ctrl)
	s.stream = mocks.NewMockStream(s.ctrl)
	s.session = face.NewSession(func() int { return 10 })
	s.ctx = context.Background()
}

func (s *FaceSuite) openCamera() {
	s.camera.EXPECT().Open(gomock.Any()).Return(s.stream, nil)
	s.Require().NoError(s.session.RequestCamera(s.ctx, s.camera))
	s.Require().Equal(face.PhaseCapture, s.session.Phase())
}

func (s *FaceSuite) TestCameraDenied() {
	s.camera.EXPECT().Open(gomock.Any()).Return(nil, sentinel.ErrDenied)

	err := s.session.RequestCamera(s.ctx, s.camera)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
	notice, ok := models.NoticeOf(err)
	s.Require().True(ok)
	s.Equal("errors.cameraAccess", notice.TitleKey)
	s.Equal("errors.enableCameraPermission", notice.DescriptionKey)
	s.Equal(face.PhaseInstructions, s.session.Phase())
	s.False(s.session.HoldsCamera())
}

func (s *FaceSuite) TestCountdownGrabsFrameAndReleasesOnce() {
	s.openCamera()
	frame := face.Frame{MediaType: "image/jpeg", Data: []byte{1, 2, 3}}
	gomock.InOrder(
		s.stream.EXPECT().Snapshot().Return(frame, nil),
		s.stream.EXPECT().Release().Times(1),
	)

	s.Require().NoError(s.session.StartCountdown())
	s.session.Advance(999 * time.Millisecond)
	s.Equal(face.CountdownStart, s.session.Countdown())

	s.session.Advance(time.Millisecond)
	s.Equal(2, s.session.Countdown())

	s.session.Advance(2 * time.Second)
	s.Equal(face.PhaseProcessing, s.session.Phase())
	s.Equal(0, s.session.Progress())
	s.False(s.session.HoldsCamera())
	s.Require().NotNil(s.session.Snapshot())
	s.Equal(frame.Data, s.session.Snapshot().Data)

	// Teardown after the grab must not release again.
	s.session.Close()
}

func (s *FaceSuite) TestProcessingReachesSuccess() {
	s.openCamera()
	s.stream.EXPECT().Snapshot().Return(face.Frame{}, sentinel.ErrNotFound)
	s.stream.EXPECT().Release().Times(1)
	s.Require().NoError(s.session.StartCountdown())
	s.session.Advance(3 * time.Second)
	s.Require().Equal(face.PhaseProcessing, s.session.Phase())

	last := 0
	for range 9 {
		s.session.Advance(face.ProgressTick)
		s.GreaterOrEqual(s.session.Progress(), last, "progress never decreases")
		last = s.session.Progress()
	}
	s.Equal(90, s.session.Progress())
	s.False(s.session.CanLeave())

	s.session.Advance(face.ProgressTick)
	s.Equal(100, s.session.Progress())
	s.Equal(face.PhaseProcessing, s.session.Phase(), "success waits for the settle delay")

	s.session.Advance(face.SuccessDelay - time.Millisecond)
	s.Equal(face.PhaseProcessing, s.session.Phase())
	s.session.Advance(time.Millisecond)
	s.Equal(face.PhaseSuccess, s.session.Phase())
	s.NoError(s.session.Complete())
	s.True(s.session.CanLeave())
}

func (s *FaceSuite) TestProgressClampsAt100() {
	s.session = face.NewSession(func() int { return 19 })
	s.openCamera()
	s.stream.EXPECT().Snapshot().Return(face.Frame{}, nil)
	s.stream.EXPECT().Release()
	s.Require().NoError(s.session.StartCountdown())

	s.session.Advance(3*time.Second + 6*face.ProgressTick)
	s.Equal(100, s.session.Progress())
}

func (s *FaceSuite) TestSuccessWithinBoundedTime() {
	s.session = face.NewSession(nil)
	s.openCamera()
	s.stream.EXPECT().Snapshot().Return(face.Frame{}, nil)
	s.stream.EXPECT().Release()
	s.Require().NoError(s.session.StartCountdown())

	// Worst case: 3s countdown, 20 ticks at the minimum increment of 5, then the settle delay.
	s.session.Advance(3*time.Second + 20*face.ProgressTick + face.SuccessDelay)
	s.Equal(face.PhaseSuccess, s.session.Phase())
}

func (s *FaceSuite) TestRetryFromCapture() {
	s.openCamera()
	s.stream.EXPECT().Release().Times(1)
	second := mocks.NewMockStream(s.ctrl)
	s.camera.EXPECT().Open(gomock.Any()).Return(second, nil)

	s.Require().NoError(s.session.Retry(s.ctx, s.camera))
	s.Equal(face.PhaseCapture, s.session.Phase())
	s.Equal(0, s.session.Progress())

	second.EXPECT().Release().Times(1)
	s.session.Close()
}

func (s *FaceSuite) TestRetryRejectedDuringCountdown() {
	s.openCamera()
	s.Require().NoError(s.session.StartCountdown())

	err := s.session.Retry(s.ctx, s.camera)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	s.stream.EXPECT().Release().Times(1)
	s.session.Close()
}

func (s *FaceSuite) TestCancelDuringProcessing() {
	s.openCamera()
	s.stream.EXPECT().Snapshot().Return(face.Frame{}, nil)
	s.stream.EXPECT().Release()
	s.Require().NoError(s.session.StartCountdown())
	s.session.Advance(3*time.Second + 2*face.ProgressTick)
	s.Require().Equal(20, s.session.Progress())

	s.camera.EXPECT().Open(gomock.Any()).Return(nil, sentinel.ErrDenied)
	err := s.session.Retry(s.ctx, s.camera)
	s.Error(err, "re-request was denied")
	s.Equal(face.PhaseInstructions, s.session.Phase())
	s.Equal(0, s.session.Progress())
}

func (s *FaceSuite) TestCloseStopsCountdownAndIsIdempotent() {
	s.openCamera()
	s.stream.EXPECT().Release().Times(1)
	s.Require().NoError(s.session.StartCountdown())

	s.session.Close()
	s.session.Close()
	s.session.Advance(10 * time.Second)

	s.Equal(face.PhaseCapture, s.session.Phase(), "closed step never advances")
	s.False(s.session.Active())
}

func (s *FaceSuite) TestStopCamera() {
	s.openCamera()
	s.stream.EXPECT().Release().Times(1)
	s.Require().NoError(s.session.StopCamera())
	s.Equal(face.PhaseInstructions, s.session.Phase())
	s.Error(s.session.StopCamera())
}

func (s *FaceSuite) TestInvalidTransitions() {
	s.Error(s.session.StartCountdown())
	s.Error(s.session.Complete())
	s.Error(s.session.PushFrame(face.Frame{}))

	s.openCamera()
	s.Error(s.session.RequestCamera(s.ctx, s.camera), "camera already open")
	s.Require().NoError(s.session.StartCountdown())
	s.True(dErrors.HasCode(s.session.StartCountdown(), dErrors.CodeConflict))

	s.stream.EXPECT().Release()
	s.session.Close()
}

func TestHostCamera(t *testing.T) {
	ctx := context.Background()

	_, err := face.HostCamera{Availability: capability.Denied}.Open(ctx)
	if err != sentinel.ErrDenied {
		t.Fatalf("denied camera: got %v", err)
	}
	_, err = face.HostCamera{Availability: capability.Unavailable}.Open(ctx)
	if err != sentinel.ErrUnavailable {
		t.Fatalf("unavailable camera: got %v", err)
	}

	stream, err := face.HostCamera{Availability: capability.Available}.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	host := stream.(*face.HostStream)
	if _, err := host.Snapshot(); err == nil {
		t.Fatal("expected no frame yet")
	}
	host.PushFrame(face.Frame{MediaType: "image/png", Data: []byte{9}})
	f, err := host.Snapshot()
	if err != nil || f.Data[0] != 9 {
		t.Fatalf("snapshot: %v %v", f, err)
	}
	host.Release()
	if !host.Released() {
		t.Fatal("expected released")
	}
	host.PushFrame(face.Frame{Data: []byte{1}})
	if _, err := host.Snapshot(); err == nil {
		t.Fatal("released stream keeps no frames")
	}
}
