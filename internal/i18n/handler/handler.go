package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bharatkyc/internal/i18n"
	id "bharatkyc/pkg/domain"
	dErrors "bharatkyc/pkg/domain-errors"
	"bharatkyc/pkg/platform/httputil"
	request "bharatkyc/pkg/platform/middleware/request"
	"bharatkyc/pkg/requestcontext"
)

// Service defines the locale operations the handler needs.
type Service interface {
	Catalog() *i18n.Catalog
	Resolve(ctx context.Context, explicit string, deviceID id.DeviceID, acceptLanguage string) i18n.Locale
	SetPreference(ctx context.Context, deviceID id.DeviceID, locale string) (i18n.Locale, error)
}

// Handler serves the locale tables and the preference endpoint.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the i18n routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/i18n/locales", h.handleListLocales)
	r.Get("/i18n/locales/{locale}", h.handleGetLocale)
	r.With(request.ContentTypeJSON).Put("/i18n/preference", h.handleSetPreference)
}

type localesResponse struct {
	Current   i18n.Locale     `json:"current"`
	Fallback  i18n.Locale     `json:"fallback"`
	Languages []i18n.Language `json:"languages"`
}

type tableResponse struct {
	Locale   i18n.Locale       `json:"locale"`
	Messages map[string]string `json:"messages"`
}

type preferenceRequest struct {
	Locale string `json:"locale"`
}

type preferenceResponse struct {
	Locale i18n.Locale `json:"locale"`
}

func (h *Handler) handleListLocales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := h.service.Resolve(ctx,
		r.URL.Query().Get("lng"),
		requestcontext.DeviceID(ctx),
		r.Header.Get("Accept-Language"),
	)
	httputil.WriteJSON(w, http.StatusOK, localesResponse{
		Current:   current,
		Fallback:  i18n.Fallback,
		Languages: i18n.Languages,
	})
}

func (h *Handler) handleGetLocale(w http.ResponseWriter, r *http.Request) {
	locale, err := i18n.ParseLocale(chi.URLParam(r, "locale"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown locale"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tableResponse{
		Locale:   locale,
		Messages: h.service.Catalog().Table(locale),
	})
}

func (h *Handler) handleSetPreference(w http.ResponseWriter, r *http.Request) {
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

	var req preferenceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid locale preference request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	locale, err := h.service.SetPreference(ctx, deviceID, req.Locale)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to store locale preference",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store locale preference"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, preferenceResponse{Locale: locale})
}
