package i18n

import (
	"context"
	"errors"
	"log/slog"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/platform/sentinel"
	"bharatkyc/pkg/requestcontext"
)

// PreferenceStore persists a device's chosen locale.
type PreferenceStore interface {
	Get(ctx context.Context, deviceID id.DeviceID) (string, error)
	Set(ctx context.Context, deviceID id.DeviceID, locale string) error
}

// LocaleListener is told when a device switches language so open wizard
// sessions can follow.
type LocaleListener interface {
	LocaleChanged(ctx context.Context, deviceID id.DeviceID, locale Locale)
}

// Service resolves and stores locale choices.
type Service struct {
	catalog   *Catalog
	store     PreferenceStore
	logger    *slog.Logger
	listeners []LocaleListener
}

func NewService(catalog *Catalog, store PreferenceStore, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, store: store, logger: logger}
}

// Subscribe registers l for preference changes. Not safe for concurrent use
// with SetPreference; call during wiring.
func (s *Service) Subscribe(l LocaleListener) {
	s.listeners = append(s.listeners, l)
}

// Catalog exposes the loaded tables.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Resolve picks the locale for a request. A store failure is logged and
// treated as "no preference".
func (s *Service) Resolve(ctx context.Context, explicit string, deviceID id.DeviceID, acceptLanguage string) Locale {
	var stored Locale
	if !deviceID.IsNil() {
		v, err := s.store.Get(ctx, deviceID)
		switch {
		case err == nil:
			stored = Locale(v)
		case errors.Is(err, sentinel.ErrNotFound):
		default:
			s.logger.WarnContext(ctx, "locale preference lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	return Resolve(explicit, stored, acceptLanguage)
}

// SetPreference validates and stores the device's locale, then notifies listeners.
func (s *Service) SetPreference(ctx context.Context, deviceID id.DeviceID, raw string) (Locale, error) {
	locale, err := ParseLocale(raw)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, deviceID, string(locale)); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "locale preference stored",
		"locale", locale,
		"request_id", requestcontext.RequestID(ctx),
	)
	for _, l := range s.listeners {
		l.LocaleChanged(ctx, deviceID, locale)
	}
	return locale, nil
}
