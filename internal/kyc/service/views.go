package service

import (
	"strconv"
	"time"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/kyc/assistant"
	"bharatkyc/internal/kyc/document"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/wizard"
	"bharatkyc/internal/shell"
)

// View is the rendered state of a session.
type View struct {
	SessionID   string          `json:"session_id"`
	Step        wizard.Step     `json:"step"`
	Path        string          `json:"path"`
	StepNumber  *StepNumberView `json:"step_number,omitempty"`
	History     []wizard.Step   `json:"history"`
	CanGoBack   bool            `json:"can_go_back"`
	Locale      i18n.Locale     `json:"locale"`
	DeviceLabel string          `json:"device_label"`
	Method      wizard.Method   `json:"method,omitempty"`

	Start  *StartView   `json:"start,omitempty"`
	Upload *UploadView  `json:"document_upload,omitempty"`
	OTP    *OTPView     `json:"otp,omitempty"`
	Face   *FaceView    `json:"face_verification,omitempty"`
	Done   *SuccessView `json:"success,omitempty"`
}

type StepNumberView struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

type MethodView struct {
	Method      wizard.Method `json:"method"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
}

type StartView struct {
	Methods []MethodView `json:"methods"`
}

type PreviewView struct {
	DataURL string `json:"data_url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type SlotView struct {
	Type      document.Type `json:"type"`
	Label     string        `json:"label"`
	Uploaded  bool          `json:"uploaded"`
	FileName  string        `json:"file_name,omitempty"`
	MediaType string        `json:"media_type,omitempty"`
	Size      int64         `json:"size,omitempty"`
	Preview   *PreviewView  `json:"preview,omitempty"`
}

type UploadView struct {
	Active document.Type `json:"active"`
	Slots  []SlotView    `json:"slots"`
}

type OTPView struct {
	Sent     bool   `json:"sent"`
	Verified bool   `json:"verified"`
	Phone    string `json:"phone,omitempty"`
}

type FaceView struct {
	Phase       face.Phase `json:"phase"`
	Countdown   int        `json:"countdown"`
	Counting    bool       `json:"counting"`
	Progress    int        `json:"progress"`
	HoldsCamera bool       `json:"holds_camera"`
	CanRetry    bool       `json:"can_retry"`
	Captured    bool       `json:"captured"`
}

type TimelineEntry struct {
	Key         string `json:"key"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SuccessView struct {
	Reference   string          `json:"reference"`
	Message     string          `json:"message"`
	CompletedAt time.Time       `json:"completed_at"`
	Timeline    []TimelineEntry `json:"timeline"`
	ReceiptPath string          `json:"receipt_path"`
}

type AssistantView struct {
	Panel        assistant.Panel        `json:"panel"`
	Activity     assistant.Activity     `json:"activity"`
	Transcript   []assistant.Message    `json:"transcript"`
	Capabilities assistant.Capabilities `json:"capabilities"`
	Speak        *assistant.Utterance   `json:"speak,omitempty"`
	SpeakSeq     int                    `json:"speak_seq"`
}

type ShellView struct {
	FontSizePx   int                 `json:"font_size_px"`
	HighContrast bool                `json:"high_contrast"`
	Locale       i18n.Locale         `json:"locale"`
	Languages    []i18n.Language     `json:"languages"`
	Theme        *shell.Theme        `json:"theme,omitempty"`
	Access       shell.Accessibility `json:"accessibility"`
}

// view renders the session. Caller holds sess.mu.
func (s *Service) view(sess *Session) View {
	locale := sess.locale
	step := sess.wizard.Current()
	v := View{
		SessionID:   sess.ID.String(),
		Step:        step,
		Path:        wizard.PathFor(step),
		History:     sess.wizard.History(),
		CanGoBack:   s.canGoBack(sess),
		Locale:      locale,
		DeviceLabel: sess.DeviceLabel,
		Method:      sess.progress.method,
	}
	if cur, total, ok := wizard.StepNumber(step); ok {
		v.StepNumber = &StepNumberView{
			Current: cur,
			Total:   total,
			Label:   s.catalog.T(locale, "kyc.step", map[string]string{"current": strconv.Itoa(cur), "total": strconv.Itoa(total)}),
		}
	}

	switch {
	case step == wizard.StepStart:
		v.Start = s.startView(locale)
	case sess.upload != nil:
		v.Upload = s.uploadView(locale, sess.upload)
	case sess.otp != nil:
		v.OTP = &OTPView{Sent: sess.otp.Sent(), Verified: sess.otp.Verified()}
		if sess.otp.Sent() {
			v.OTP.Phone = otp.MaskPhone(sess.otp.Phone())
		}
	case sess.face != nil:
		v.Face = faceView(sess.face)
	case step == wizard.StepSuccess:
		v.Done = s.successView(locale, sess.progress)
	}
	return v
}

func (s *Service) startView(locale i18n.Locale) *StartView {
	out := &StartView{Methods: make([]MethodView, 0, len(wizard.Methods))}
	for _, m := range wizard.Methods {
		out.Methods = append(out.Methods, MethodView{
			Method:      m,
			Title:       s.catalog.T(locale, "kyc.methods."+string(m)+".title", nil),
			Description: s.catalog.T(locale, "kyc.methods."+string(m)+".description", nil),
		})
	}
	return out
}

func (s *Service) uploadView(locale i18n.Locale, u *document.Upload) *UploadView {
	out := &UploadView{Active: u.Active()}
	for _, slot := range u.Slots() {
		sv := SlotView{
			Type:     slot.Type,
			Label:    s.catalog.T(locale, slot.Type.LabelKey(), nil),
			Uploaded: slot.Uploaded,
		}
		if slot.File != nil {
			sv.FileName = slot.File.Name
			sv.MediaType = slot.File.MediaType
			sv.Size = slot.File.Size
		}
		if slot.Preview != nil {
			sv.Preview = &PreviewView{DataURL: slot.Preview.DataURL, Width: slot.Preview.Width, Height: slot.Preview.Height}
		}
		out.Slots = append(out.Slots, sv)
	}
	return out
}

func faceView(f *face.Session) *FaceView {
	return &FaceView{
		Phase:       f.Phase(),
		Countdown:   f.Countdown(),
		Counting:    f.Counting(),
		Progress:    f.Progress(),
		HoldsCamera: f.HoldsCamera(),
		CanRetry:    f.CanRetry(),
		Captured:    f.Snapshot() != nil,
	}
}

func (s *Service) successView(locale i18n.Locale, p progress) *SuccessView {
	entry := func(key, status string) TimelineEntry {
		return TimelineEntry{
			Key:         key,
			Status:      status,
			Title:       s.catalog.T(locale, "kyc.success.steps."+key, nil),
			Description: s.catalog.T(locale, "kyc.success.steps."+key+"Desc", nil),
		}
	}
	return &SuccessView{
		Reference:   p.reference,
		Message:     s.catalog.T(locale, "kyc.success.referenceNumber", map[string]string{"number": p.reference}),
		CompletedAt: p.completedAt,
		Timeline: []TimelineEntry{
			entry("verification", "completed"),
			entry("approval", "in_progress"),
			entry("complete", "pending"),
		},
		ReceiptPath: wizard.PathFor(wizard.StepSuccess) + "/receipt",
	}
}

// assistantView renders the widget. Caller holds sess.mu.
func assistantView(sess *Session) AssistantView {
	w := sess.assistant
	return AssistantView{
		Panel:        w.Panel(),
		Activity:     w.Activity(),
		Transcript:   w.Transcript(),
		Capabilities: w.Capabilities(),
		Speak:        sess.speak,
		SpeakSeq:     sess.speakSeq,
	}
}
