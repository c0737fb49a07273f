// Package handler exposes the onboarding wizard over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/kyc/document"
	"bharatkyc/internal/kyc/face"
	"bharatkyc/internal/kyc/models"
	"bharatkyc/internal/kyc/service"
	"bharatkyc/internal/kyc/wizard"
	"bharatkyc/internal/platform/middleware"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/httputil"
	request "bharatkyc/pkg/platform/middleware/request"
	"bharatkyc/pkg/requestcontext"
)

// multipartOverhead is the slack allowed on top of the file for the
// multipart envelope. Anything larger is rejected before it is buffered.
const multipartOverhead = 64 * 1024

// defaultViewportWidth is assumed when the client does not report one.
const defaultViewportWidth = 1024

// Service defines the wizard operations the handler needs.
type Service interface {
	Create(ctx context.Context, deviceID id.DeviceID, userAgent string, locale i18n.Locale) (*service.View, error)
	Get(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Locale(ctx context.Context, sessionID id.SessionID) i18n.Locale
	End(ctx context.Context, sessionID id.SessionID) error
	Navigate(ctx context.Context, sessionID id.SessionID, path string) (*service.View, error)
	Back(ctx context.Context, sessionID id.SessionID) (*service.View, error)

	ChooseMethod(ctx context.Context, sessionID id.SessionID, method string) (*service.View, error)
	SelectFile(ctx context.Context, sessionID id.SessionID, docType string, f document.File) (*service.View, error)
	RemoveFile(ctx context.Context, sessionID id.SessionID, docType string) (*service.View, error)
	SetActiveDocument(ctx context.Context, sessionID id.SessionID, docType string) (*service.View, error)
	SubmitDocuments(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	SendOTP(ctx context.Context, sessionID id.SessionID, phone string) (*service.Result, error)
	VerifyOTP(ctx context.Context, sessionID id.SessionID, code string) (*service.Result, error)

	RequestCamera(ctx context.Context, sessionID id.SessionID, permission string) (*service.View, error)
	PushFrame(ctx context.Context, sessionID id.SessionID, frame face.Frame) error
	StartCapture(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	RetryFace(ctx context.Context, sessionID id.SessionID, permission string) (*service.View, error)
	StopCamera(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	CompleteFace(ctx context.Context, sessionID id.SessionID) (*service.View, error)
	Receipt(ctx context.Context, sessionID id.SessionID) (*service.Receipt, error)

	Assistant(ctx context.Context, sessionID id.SessionID) (*service.AssistantView, error)
	ToggleAssistant(ctx context.Context, sessionID id.SessionID) (*service.AssistantView, error)
	SendMessage(ctx context.Context, sessionID id.SessionID, text string) (*service.AssistantView, error)
	SetSpeechCapabilities(ctx context.Context, sessionID id.SessionID, recognition, synthesis string) (*service.AssistantView, error)
	StartListening(ctx context.Context, sessionID id.SessionID) (*service.AssistantView, error)
	StopListening(ctx context.Context, sessionID id.SessionID) (*service.AssistantView, error)
	VoiceResult(ctx context.Context, sessionID id.SessionID, text string) (*service.AssistantView, error)
	VoiceError(ctx context.Context, sessionID id.SessionID, kind string) (*service.AssistantResult, error)

	Shell(ctx context.Context, sessionID id.SessionID, width int) (*service.ShellView, error)
	ApplyAccessibility(ctx context.Context, sessionID id.SessionID, action string, width int) (*service.ShellView, error)
}

// LocaleResolver picks the starting locale of a new session.
type LocaleResolver interface {
	Resolve(ctx context.Context, explicit string, deviceID id.DeviceID, acceptLanguage string) i18n.Locale
}

// TokenIssuer mints session bearer tokens.
type TokenIssuer interface {
	GenerateSessionToken(sessionID id.SessionID, deviceID id.DeviceID, expiresIn time.Duration) (string, error)
}

// Handler serves the wizard routes.
type Handler struct {
	logger    *slog.Logger
	service   Service
	catalog   *i18n.Catalog
	locales   LocaleResolver
	tokens    TokenIssuer
	validator middleware.JWTValidator
	tokenTTL  time.Duration
}

func New(
	svc Service,
	catalog *i18n.Catalog,
	locales LocaleResolver,
	tokens TokenIssuer,
	validator middleware.JWTValidator,
	tokenTTL time.Duration,
	logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		service:   svc,
		catalog:   catalog,
		locales:   locales,
		tokens:    tokens,
		validator: validator,
		tokenTTL:  tokenTTL,
	}
}

// Register registers the wizard routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.validator, h.logger))

		// Uploads carry multipart or raw image bodies.
		r.Post("/kyc/document-upload/{type}", h.handleSelectFile)
		r.Post("/kyc/face-verification/frame", h.handlePushFrame)

		r.Group(func(r chi.Router) {
			r.Use(request.ContentTypeJSON)

			r.Get("/session", h.handleGetSession)
			r.Delete("/session", h.handleEndSession)
			r.Post("/session/navigate", h.handleNavigate)
			r.Post("/session/back", h.handleBack)

			r.Get("/kyc/start", h.handleGetStep(wizard.StepStart))
			r.Post("/kyc/start", h.handleChooseMethod)

			r.Get("/kyc/document-upload", h.handleGetStep(wizard.StepDocumentUpload))
			r.Delete("/kyc/document-upload/{type}", h.handleRemoveFile)
			r.Put("/kyc/document-upload/active", h.handleSetActiveDocument)
			r.Post("/kyc/document-upload/submit", h.handleSubmitDocuments)

			r.Get("/kyc/otp", h.handleGetStep(wizard.StepOTP))
			r.Post("/kyc/otp/send", h.handleSendOTP)
			r.Post("/kyc/otp/verify", h.handleVerifyOTP)

			r.Get("/kyc/face-verification", h.handleGetStep(wizard.StepFaceVerification))
			r.Post("/kyc/face-verification/camera", h.handleRequestCamera)
			r.Delete("/kyc/face-verification/camera", h.handleStopCamera)
			r.Post("/kyc/face-verification/capture", h.handleStartCapture)
			r.Post("/kyc/face-verification/retry", h.handleRetryFace)
			r.Post("/kyc/face-verification/complete", h.handleCompleteFace)

			r.Get("/kyc/success", h.handleGetStep(wizard.StepSuccess))
			r.Get("/kyc/success/receipt", h.handleReceipt)

			r.Get("/assistant", h.handleGetAssistant)
			r.Post("/assistant/toggle", h.handleToggleAssistant)
			r.Post("/assistant/messages", h.handleSendMessage)
			r.Put("/assistant/capabilities", h.handleSetCapabilities)
			r.Post("/assistant/listen", h.handleStartListening)
			r.Delete("/assistant/listen", h.handleStopListening)
			r.Post("/assistant/voice", h.handleVoiceResult)
			r.Post("/assistant/voice/error", h.handleVoiceError)

			r.Get("/shell", h.handleGetShell)
			r.Post("/shell/accessibility", h.handleAccessibility)
		})
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	deviceID := requestcontext.DeviceID(ctx)
	if deviceID.IsNil() {
		h.logger.ErrorContext(ctx, "device id missing from context despite device middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "device context error"))
		return
	}

	locale := h.locales.Resolve(ctx, r.URL.Query().Get("lng"), deviceID, r.Header.Get("Accept-Language"))
	view, err := h.service.Create(ctx, deviceID, r.UserAgent(), locale)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sessionID, err := id.ParseSessionID(view.SessionID)
	if err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInternal, "malformed session id"))
		return
	}
	token, err := h.tokens.GenerateSessionToken(sessionID, deviceID, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign session token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.tokenTTL.Seconds()),
		View:      view,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := requestcontext.SessionID(ctx)
	if err := h.service.End(ctx, sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "wizard session ended",
		"session_id", sessionID.String(),
		"request_id", request.GetRequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.Navigate(r.Context(), requestcontext.SessionID(r.Context()), req.Path)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Back(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

// handleGetStep renders the session when step is current.
func (h *Handler) handleGetStep(step wizard.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := h.service.Get(r.Context(), requestcontext.SessionID(r.Context()))
		if err == nil && view.Step != step {
			err = dErrors.New(dErrors.CodeInvalidState, "session is on the "+string(view.Step)+" step")
		}
		h.writeView(w, r, view, err)
	}
}

func (h *Handler) handleChooseMethod(w http.ResponseWriter, r *http.Request) {
	var req methodRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.ChooseMethod(r.Context(), requestcontext.SessionID(r.Context()), req.Method)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.service.SelectFile(ctx, requestcontext.SessionID(ctx), chi.URLParam(r, "type"), f)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveFile(r.Context(), requestcontext.SessionID(r.Context()), chi.URLParam(r, "type"))
	h.writeView(w, r, view, err)
}

func (h *Handler) handleSetActiveDocument(w http.ResponseWriter, r *http.Request) {
	var req activeDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.SetActiveDocument(r.Context(), requestcontext.SessionID(r.Context()), req.Type)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleSubmitDocuments(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.SubmitDocuments(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.SendOTP(r.Context(), requestcontext.SessionID(r.Context()), req.Phone)
	h.writeResult(w, r, res, err)
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.VerifyOTP(r.Context(), requestcontext.SessionID(r.Context()), req.Code)
	h.writeResult(w, r, res, err)
}

func (h *Handler) handleRequestCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.RequestCamera(r.Context(), requestcontext.SessionID(r.Context()), req.Permission)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleStopCamera(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StopCamera(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

func (h *Handler) handlePushFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, document.MaxFileSize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "frame too large"))
			return
		}
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read frame"))
		return
	}
	mediaType := r.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if err := h.service.PushFrame(ctx, requestcontext.SessionID(ctx), face.Frame{MediaType: mediaType, Data: data}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StartCapture(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

func (h *Handler) handleRetryFace(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.RetryFace(r.Context(), requestcontext.SessionID(r.Context()), req.Permission)
	h.writeView(w, r, view, err)
}

func (h *Handler) handleCompleteFace(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.CompleteFace(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeView(w, r, view, err)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Receipt(r.Context(), requestcontext.SessionID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+receipt.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(receipt.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(receipt.PDF)
}

func (h *Handler) handleGetAssistant(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Assistant(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleToggleAssistant(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleAssistant(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.SendMessage(r.Context(), requestcontext.SessionID(r.Context()), req.Text)
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleSetCapabilities(w http.ResponseWriter, r *http.Request) {
	var req capabilitiesRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.SetSpeechCapabilities(r.Context(), requestcontext.SessionID(r.Context()), req.Recognition, req.Synthesis)
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleStartListening(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StartListening(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleStopListening(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StopListening(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleVoiceResult(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.service.VoiceResult(r.Context(), requestcontext.SessionID(r.Context()), req.Text)
	h.writeAssistant(w, r, view, nil, err)
}

func (h *Handler) handleVoiceError(w http.ResponseWriter, r *http.Request) {
	var req voiceErrorRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.VoiceError(r.Context(), requestcontext.SessionID(r.Context()), req.Kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAssistant(w, r, &res.Assistant, res.Notice, nil)
}

func (h *Handler) handleGetShell(w http.ResponseWriter, r *http.Request) {
	width := defaultViewportWidth
	if raw := r.URL.Query().Get("width"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "width must be a non-negative integer"))
			return
		}
		width = parsed
	}
	view, err := h.service.Shell(r.Context(), requestcontext.SessionID(r.Context()), width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAccessibility(w http.ResponseWriter, r *http.Request) {
	var req accessibilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Width == 0 {
		req.Width = defaultViewportWidth
	}
	view, err := h.service.ApplyAccessibility(r.Context(), requestcontext.SessionID(r.Context()), req.Action, req.Width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// readUpload pulls the "file" part out of a multipart body. The body is
// capped just above the file limit so oversized uploads fail before they
// are buffered; those are reported with the same notice as the size rule.
func readUpload(w http.ResponseWriter, r *http.Request) (document.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, document.MaxFileSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return document.File{}, models.NewNoticeError(dErrors.CodePayloadTooLarge, "upload exceeds the size limit",
				"errors.fileTooLarge", "errors.maxFileSize", map[string]string{"size": "5MB"})
		}
		return document.File{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return document.File{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read upload")
	}
	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return document.File{
		Name:      header.Filename,
		MediaType: mediaType,
		Size:      header.Size,
		Data:      data,
	}, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", request.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, err)
		return false
	}
	return true
}

func (h *Handler) writeView(w http.ResponseWriter, r *http.Request, view *service.View, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewResponse{View: view})
}

func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, res *service.Result, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := viewResponse{View: &res.View}
	if res.Notice != nil {
		resp.Notice = h.localize(r.Context(), *res.Notice)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeAssistant(w http.ResponseWriter, r *http.Request, view *service.AssistantView, notice *models.Notice, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := assistantResponse{AssistantView: view}
	if notice != nil {
		resp.Notice = h.localize(r.Context(), *notice)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// writeError logs err and writes the envelope, with the step's notice
// localized to the session's language.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", request.GetRequestID(ctx),
		"session_id", requestcontext.SessionID(ctx).String(),
		"path", r.URL.Path,
		"code", code,
		"error", err,
	}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, "wizard request failed", attrs...)
	default:
		h.logger.WarnContext(ctx, "wizard request rejected", attrs...)
	}

	var notice *httputil.Notice
	if n, ok := models.NoticeOf(err); ok {
		notice = h.localize(ctx, n)
	}
	httputil.WriteErrorWithNotice(w, err, notice)
}

func (h *Handler) localize(ctx context.Context, n models.Notice) *httputil.Notice {
	locale := i18n.Fallback
	if sessionID := requestcontext.SessionID(ctx); !sessionID.IsNil() {
		locale = h.service.Locale(ctx, sessionID)
	}
	out := &httputil.Notice{
		Status: string(n.Status),
		Title:  h.catalog.T(locale, n.TitleKey, n.Vars),
	}
	switch {
	case n.Description != "":
		out.Description = n.Description
	case n.DescriptionKey != "":
		out.Description = h.catalog.T(locale, n.DescriptionKey, n.Vars)
	}
	return out
}
