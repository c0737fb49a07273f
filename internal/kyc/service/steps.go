package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"bharatkyc/internal/kyc/document"
	"bharatkyc/internal/kyc/models"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/wizard"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/audit"
	"bharatkyc/pkg/requestcontext"
)

// Result is a view plus the notice the step raised, if any.
type Result struct {
	View   View
	Notice *models.Notice
}

// ChooseMethod picks a KYC method on the start page and moves to its step.
func (s *Service) ChooseMethod(ctx context.Context, sessionID id.SessionID, raw string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.ChooseMethod")
	defer span.End()

	method, err := wizard.ParseMethod(raw)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("kyc.method", string(method)))

	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepStart); err != nil {
			return err
		}
		sess.progress.method = method
		s.emit(ctx, sess, audit.EventMethodChosen, string(method), "")
		if err := s.goTo(ctx, sess, method.Target()); err != nil {
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

// SelectFile validates a file for a document slot and attaches it. The image
// preview is decoded without holding the session; if the step was left in
// the meantime the file is discarded.
func (s *Service) SelectFile(ctx context.Context, sessionID id.SessionID, rawType string, f document.File) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.SelectFile")
	defer span.End()

	docType, err := document.ParseType(rawType)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(
		attribute.String("kyc.document_type", string(docType)),
		attribute.String("kyc.media_type", f.MediaType),
		attribute.Int64("kyc.size", f.Size),
	)

	generation, err := s.admitFile(ctx, sessionID, docType, f)
	if err != nil {
		return nil, s.fail(span, err)
	}

	var preview *document.Preview
	if f.IsImage() {
		preview = document.BuildPreview(f)
	}

	v, err := s.attachFile(ctx, sessionID, generation, docType, f, preview)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return v, nil
}

// admitFile validates f against the mounted upload step and returns the
// generation the attach must still match.
func (s *Service) admitFile(ctx context.Context, sessionID id.SessionID, docType document.Type, f document.File) (uint64, error) {
	var generation uint64
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepDocumentUpload); err != nil {
			return err
		}
		if err := document.Validate(f); err != nil {
			s.metrics.IncrementDocument("rejected")
			s.emit(ctx, sess, audit.EventDocumentRejected, string(docType), dErrors.MessageOf(err))
			return err
		}
		generation = sess.generation
		return nil
	})
	return generation, err
}

func (s *Service) attachFile(ctx context.Context, sessionID id.SessionID, generation uint64, docType document.Type, f document.File, preview *document.Preview) (*View, error) {
	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.generation != generation || sess.upload == nil {
			return dErrors.New(dErrors.CodeConflict, "document step is no longer active")
		}
		sess.upload.Attach(docType, f, preview)
		s.metrics.IncrementDocument("accepted")
		s.emit(ctx, sess, audit.EventDocumentAccepted, string(docType), "")
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RemoveFile clears a document slot.
func (s *Service) RemoveFile(ctx context.Context, sessionID id.SessionID, rawType string) (*View, error) {
	docType, err := document.ParseType(rawType)
	if err != nil {
		return nil, err
	}
	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepDocumentUpload); err != nil {
			return err
		}
		if sess.upload.Slot(docType).Uploaded {
			s.emit(ctx, sess, audit.EventDocumentRemoved, string(docType), "")
		}
		sess.upload.RemoveFile(docType)
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SetActiveDocument selects the slot shown to the user.
func (s *Service) SetActiveDocument(ctx context.Context, sessionID id.SessionID, rawType string) (*View, error) {
	docType, err := document.ParseType(rawType)
	if err != nil {
		return nil, err
	}
	var v View
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepDocumentUpload); err != nil {
			return err
		}
		sess.upload.SetActive(docType)
		v = s.view(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SubmitDocuments moves on to face verification once a slot is filled.
func (s *Service) SubmitDocuments(ctx context.Context, sessionID id.SessionID) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.SubmitDocuments")
	defer span.End()

	var v View
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepDocumentUpload); err != nil {
			return err
		}
		if err := sess.upload.Submit(); err != nil {
			return err
		}
		sess.progress.documents = sess.upload.UploadedTypes()
		s.emit(ctx, sess, audit.EventDocumentsSubmitted, "", "")
		if err := s.goTo(ctx, sess, wizard.StepFaceVerification); err != nil {
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

// SendOTP issues a fresh code for phone and delivers it. The code replaces
// the earlier one only once delivery succeeds. With echo delivery the code
// comes back in the notice.
func (s *Service) SendOTP(ctx context.Context, sessionID id.SessionID, phone string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.SendOTP")
	defer span.End()

	var (
		issued     otp.Issued
		generation uint64
	)
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepOTP); err != nil {
			return err
		}
		var err error
		issued, err = sess.otp.Issue(phone, s.generator)
		if err != nil {
			return err
		}
		generation = sess.generation
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}

	delivery, err := s.sender.Send(ctx, issued.Phone, issued.Code)
	if err != nil {
		s.logger.ErrorContext(ctx, "otp delivery failed",
			"error", err,
			"session_id", sessionID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeUnavailable, "otp delivery failed"))
	}
	span.SetAttributes(attribute.String("kyc.otp_channel", string(delivery.Channel)))
	s.metrics.IncrementOTPSent(string(delivery.Channel))

	notice := &models.Notice{Status: models.StatusSuccess, TitleKey: "otp.otpSent"}
	if delivery.Channel == otp.ChannelEcho {
		notice.Description = "OTP: " + delivery.Code
	}

	var res Result
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.generation != generation || sess.otp == nil {
			return dErrors.New(dErrors.CodeConflict, "otp step is no longer active")
		}
		sess.otp.Commit(issued)
		s.emit(ctx, sess, audit.EventOTPSent, string(delivery.Channel), "")
		res = Result{View: s.view(sess), Notice: notice}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &res, nil
}

// VerifyOTP checks the code and moves on to face verification when it matches.
func (s *Service) VerifyOTP(ctx context.Context, sessionID id.SessionID, code string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.VerifyOTP")
	defer span.End()

	var res Result
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepOTP); err != nil {
			return err
		}
		if err := sess.otp.Verify(code); err != nil {
			s.metrics.IncrementOTPVerification("failed")
			s.emit(ctx, sess, audit.EventOTPFailed, "rejected", "code mismatch")
			return err
		}
		s.metrics.IncrementOTPVerification("verified")
		sess.progress.maskedPhone = otp.MaskPhone(sess.otp.Phone())
		s.emit(ctx, sess, audit.EventOTPVerified, "verified", "")
		if err := s.goTo(ctx, sess, wizard.StepFaceVerification); err != nil {
			return err
		}
		res = Result{
			View:   s.view(sess),
			Notice: &models.Notice{Status: models.StatusSuccess, TitleKey: "otp.otpVerified"},
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &res, nil
}
