package service

import (
	"context"
	"strings"
	"time"

	"bharatkyc/internal/kyc/assistant"
	"bharatkyc/internal/kyc/capability"
	"bharatkyc/internal/kyc/models"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
)

// Voice failure kinds reported by the browser.
const (
	VoiceRecognition = "recognition"
	VoiceSynthesis   = "synthesis"
)

// AssistantResult is the widget plus the notice an action raised, if any.
type AssistantResult struct {
	Assistant AssistantView
	Notice    *models.Notice
}

// Assistant renders the help widget.
func (s *Service) Assistant(ctx context.Context, sessionID id.SessionID) (*AssistantView, error) {
	var v AssistantView
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		v = assistantView(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ToggleAssistant opens or closes the panel. The first open greets the user
// in the session's language.
func (s *Service) ToggleAssistant(ctx context.Context, sessionID id.SessionID) (*AssistantView, error) {
	return s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		welcome := s.catalog.T(sess.locale, "sahayak.welcome", map[string]string{"name": assistant.BrandName})
		sess.assistant.Toggle(welcome)
		return nil
	})
}

// SendMessage appends a typed message and schedules the canned reply. Blank
// input leaves the widget unchanged.
func (s *Service) SendMessage(ctx context.Context, sessionID id.SessionID, text string) (*AssistantView, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.SendMessage")
	defer span.End()

	v, err := s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		pending, ok, err := sess.assistant.Submit(text)
		if err != nil || !ok {
			return err
		}
		s.scheduleReply(sess, pending)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return v, nil
}

// SetSpeechCapabilities records what the browser supports for voice.
func (s *Service) SetSpeechCapabilities(ctx context.Context, sessionID id.SessionID, recognition, synthesis string) (*AssistantView, error) {
	rec, err := capability.Parse(recognition)
	if err != nil {
		return nil, err
	}
	syn, err := capability.Parse(synthesis)
	if err != nil {
		return nil, err
	}
	return s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		sess.assistant.SetCapabilities(assistant.Capabilities{Recognition: rec, Synthesis: syn})
		return nil
	})
}

func (s *Service) StartListening(ctx context.Context, sessionID id.SessionID) (*AssistantView, error) {
	return s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		return sess.assistant.StartListening()
	})
}

func (s *Service) StopListening(ctx context.Context, sessionID id.SessionID) (*AssistantView, error) {
	return s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		sess.assistant.StopListening()
		return nil
	})
}

// VoiceResult submits recognized speech as if it had been typed.
func (s *Service) VoiceResult(ctx context.Context, sessionID id.SessionID, text string) (*AssistantView, error) {
	return s.updateAssistant(ctx, sessionID, func(sess *Session) error {
		pending, ok, err := sess.assistant.VoiceResult(text)
		if err != nil || !ok {
			return err
		}
		s.scheduleReply(sess, pending)
		return nil
	})
}

// VoiceError turns a browser speech failure into the notice to show.
func (s *Service) VoiceError(ctx context.Context, sessionID id.SessionID, kind string) (*AssistantResult, error) {
	var res AssistantResult
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		var notice models.Notice
		switch kind {
		case VoiceRecognition:
			notice = sess.assistant.VoiceError()
		case VoiceSynthesis:
			notice = sess.assistant.SynthesisFailed()
		default:
			return dErrors.New(dErrors.CodeValidation, "unknown voice error kind "+kind)
		}
		res = AssistantResult{Assistant: assistantView(sess), Notice: &notice}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) updateAssistant(ctx context.Context, sessionID id.SessionID, fn func(sess *Session) error) (*AssistantView, error) {
	var v AssistantView
	err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		v = assistantView(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// scheduleReply answers pending after the reply delay. The widget refuses new
// input until then, so at most one timer is armed. Caller holds sess.mu.
func (s *Service) scheduleReply(sess *Session, pending assistant.Pending) {
	s.metrics.IncrementAssistantMessage(strings.TrimPrefix(pending.ReplyKey, "sahayak.responses."))
	if s.replyDelay <= 0 {
		s.deliverReply(sess, pending)
		return
	}
	sess.replyTimer = time.AfterFunc(s.replyDelay, func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.closed {
			return
		}
		s.deliverReply(sess, pending)
	})
}

// deliverReply appends the localized reply. Caller holds sess.mu.
func (s *Service) deliverReply(sess *Session, pending assistant.Pending) {
	text := s.catalog.T(sess.locale, pending.ReplyKey, nil)
	utterance, ok := sess.assistant.Reply(pending.Ticket, text, string(sess.locale))
	if !ok {
		return
	}
	sess.replyTimer = nil
	if utterance != nil {
		sess.speak = utterance
		sess.speakSeq++
	}
}
