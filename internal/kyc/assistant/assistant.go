// Package assistant implements the Sahayak help widget: a floating chat panel
// with canned keyword replies and optional voice input and output.
package assistant

import (
	"slices"
	"strings"
	"time"

	"bharatkyc/internal/kyc/capability"
	"bharatkyc/internal/kyc/models"
	dErrors "bharatkyc/pkg/domain-errors"
)

type Panel string

const (
	PanelClosed Panel = "closed"
	PanelOpen   Panel = "open"
)

type Activity string

const (
	ActivityIdle       Activity = "idle"
	ActivityListening  Activity = "listening"
	ActivityProcessing Activity = "processing"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ReplyDelay is how long the assistant "thinks" before answering.
const ReplyDelay = time.Second

// BrandName fills the {{name}} placeholder of the welcome message.
const BrandName = "Bharat KYC"

const (
	speechRate  = 0.9
	speechPitch = 1.0
)

// Message is one transcript entry.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Capabilities is what the browser reported for speech support.
type Capabilities struct {
	Recognition capability.Availability `json:"recognition"`
	Synthesis   capability.Availability `json:"synthesis"`
}

// Utterance asks the browser to speak text.
type Utterance struct {
	Text  string  `json:"text"`
	Lang  string  `json:"lang"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// Pending identifies an outstanding reply. At most one is outstanding at a time.
type Pending struct {
	Ticket   int
	ReplyKey string
}

// Widget holds the panel state and transcript. The transcript is append-only.
// Not safe for concurrent use.
type Widget struct {
	panel      Panel
	activity   Activity
	transcript []Message
	caps       Capabilities
	ticket     int
	waiting    bool
	now        func() time.Time
}

// NewWidget returns a closed, idle widget. Speech is unavailable until the
// browser reports otherwise.
func NewWidget(now func() time.Time) *Widget {
	if now == nil {
		now = time.Now
	}
	return &Widget{
		panel:    PanelClosed,
		activity: ActivityIdle,
		caps:     Capabilities{Recognition: capability.Unavailable, Synthesis: capability.Unavailable},
		now:      now,
	}
}

func (w *Widget) Panel() Panel                   { return w.panel }
func (w *Widget) Activity() Activity             { return w.activity }
func (w *Widget) Capabilities() Capabilities     { return w.caps }
func (w *Widget) Transcript() []Message          { return slices.Clone(w.transcript) }
func (w *Widget) SetCapabilities(c Capabilities) { w.caps = c }

// Toggle opens or closes the panel. The first open seeds the transcript with
// the welcome text.
func (w *Widget) Toggle(welcome string) Panel {
	if w.panel == PanelOpen {
		w.panel = PanelClosed
		return w.panel
	}
	w.panel = PanelOpen
	if len(w.transcript) == 0 && welcome != "" {
		w.append(RoleAssistant, welcome)
	}
	return w.panel
}

// Submit appends the user's message and starts processing. Blank input is
// ignored and reports false. Input is refused while a reply is outstanding, so
// every accepted message gets exactly one answer.
func (w *Widget) Submit(text string) (Pending, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Pending{}, false, nil
	}
	if w.waiting {
		return Pending{}, false, models.NewNoticeError(dErrors.CodeConflict, "assistant is still replying",
			"sahayak.errors.generic", "sahayak.errors.stillReplying", nil)
	}
	w.append(RoleUser, text)
	w.activity = ActivityProcessing
	w.ticket++
	w.waiting = true
	return Pending{Ticket: w.ticket, ReplyKey: ResponseKey(text)}, true, nil
}

// Reply answers a pending submission with localized text. Tickets of cancelled
// submissions are dropped. The utterance is returned when the browser can speak.
func (w *Widget) Reply(ticket int, text, lang string) (*Utterance, bool) {
	if !w.waiting || ticket != w.ticket {
		return nil, false
	}
	w.waiting = false
	w.append(RoleAssistant, text)
	w.activity = ActivityIdle
	if !w.caps.Synthesis.Usable() {
		return nil, true
	}
	return &Utterance{Text: text, Lang: lang, Rate: speechRate, Pitch: speechPitch}, true
}

// Waiting reports whether a reply is outstanding.
func (w *Widget) Waiting() bool { return w.waiting }

// StartListening begins voice capture. Missing recognition support is reported
// as a notice and leaves the widget idle.
func (w *Widget) StartListening() error {
	if !w.caps.Recognition.Usable() {
		return models.NewNoticeError(dErrors.CodeUnavailable, "speech recognition unavailable",
			"sahayak.errors.notSupported", "sahayak.errors.speechRecognitionNotSupported", nil)
	}
	if w.activity == ActivityProcessing {
		return models.NewNoticeError(dErrors.CodeConflict, "assistant is busy",
			"sahayak.errors.generic", "sahayak.errors.couldNotStartListening", nil)
	}
	w.activity = ActivityListening
	return nil
}

func (w *Widget) StopListening() {
	if w.activity == ActivityListening {
		w.activity = ActivityIdle
	}
}

// VoiceResult treats a recognized utterance as typed input.
func (w *Widget) VoiceResult(text string) (Pending, bool, error) {
	w.StopListening()
	return w.Submit(text)
}

// VoiceError ends listening after a recognition failure and returns the
// notice to show.
func (w *Widget) VoiceError() models.Notice {
	w.StopListening()
	return models.Notice{
		Status:         models.StatusError,
		TitleKey:       "sahayak.errors.speechRecognition",
		DescriptionKey: "sahayak.errors.speechRecognitionError",
	}
}

// SynthesisFailed returns the notice for a failed read-aloud. The transcript is
// not touched.
func (w *Widget) SynthesisFailed() models.Notice {
	return models.Notice{
		Status:         models.StatusError,
		TitleKey:       "sahayak.errors.speechSynthesis",
		DescriptionKey: "sahayak.errors.speechSynthesisError",
	}
}

// Cancel drops any outstanding reply.
func (w *Widget) Cancel() {
	if w.waiting {
		w.waiting = false
		w.activity = ActivityIdle
	}
}

func (w *Widget) append(role Role, text string) {
	w.transcript = append(w.transcript, Message{Role: role, Text: text, At: w.now()})
}
