// Package device issues and reads the long-lived device cookie. The cookie keys
// browser-scoped preferences (the chosen locale) that outlive a wizard session.
package device

import (
	"net/http"
	"time"

	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/requestcontext"
)

// CookieName is the device cookie's name.
const CookieName = "bkyc_device"

const cookieMaxAge = 365 * 24 * time.Hour

// Middleware reads the device cookie, minting and setting a fresh one when the
// cookie is missing or malformed, and stores the ID in the request context.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, ok := fromCookie(r)
			if !ok {
				deviceID = id.NewDeviceID()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    deviceID.String(),
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := requestcontext.WithDeviceID(r.Context(), deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func fromCookie(r *http.Request) (id.DeviceID, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return id.DeviceID{}, false
	}
	deviceID, err := id.ParseDeviceID(c.Value)
	if err != nil {
		return id.DeviceID{}, false
	}
	return deviceID, true
}
