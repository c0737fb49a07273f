package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/kyc/receipt"
	"bharatkyc/internal/kyc/wizard"
	"bharatkyc/internal/shell"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/audit"
)

// Receipt is a rendered PDF and its download name.
type Receipt struct {
	Filename string
	PDF      []byte
}

// Receipt renders the PDF receipt for a completed session. The PDF is always
// English; the core fonts cannot draw Indic scripts.
func (s *Service) Receipt(ctx context.Context, sessionID id.SessionID) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Receipt")
	defer span.End()

	var data receipt.Data
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := requireStep(sess, wizard.StepSuccess); err != nil {
			return err
		}
		data = s.receiptData(sess.progress)
		s.emit(ctx, sess, audit.EventReceiptIssued, data.Reference, "")
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("kyc.reference", data.Reference))

	pdf, err := receipt.Render(data)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.IncrementReceipt()
	return &Receipt{Filename: data.Filename(), PDF: pdf}, nil
}

func (s *Service) receiptData(p progress) receipt.Data {
	d := receipt.Data{
		Reference:   p.reference,
		MaskedPhone: p.maskedPhone,
		CompletedAt: p.completedAt,
	}
	if p.method != "" {
		d.Method = s.catalog.T(i18n.English, "kyc.methods."+string(p.method)+".title", nil)
	}
	for _, t := range p.documents {
		d.Documents = append(d.Documents, s.catalog.T(i18n.English, t.LabelKey(), nil))
	}
	return d
}

// Shell renders the layout state for a viewport width.
func (s *Service) Shell(ctx context.Context, sessionID id.SessionID, width int) (*ShellView, error) {
	var v ShellView
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		v = s.shellView(sess, width)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ApplyAccessibility performs a text-size or contrast action.
func (s *Service) ApplyAccessibility(ctx context.Context, sessionID id.SessionID, rawAction string, width int) (*ShellView, error) {
	action, err := shell.ParseAction(rawAction)
	if err != nil {
		return nil, err
	}
	if width < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "width must not be negative")
	}
	var v ShellView
	err = s.withSession(ctx, sessionID, func(sess *Session) error {
		sess.access.Apply(action, width)
		v = s.shellView(sess, width)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// shellView renders layout state. Caller holds sess.mu.
func (s *Service) shellView(sess *Session, width int) ShellView {
	return ShellView{
		FontSizePx:   sess.access.EffectiveFontSize(width),
		HighContrast: sess.access.HighContrast,
		Locale:       sess.locale,
		Languages:    i18n.Languages,
		Theme:        s.theme,
		Access:       sess.access,
	}
}
