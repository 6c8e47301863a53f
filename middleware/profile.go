package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coursemaster/coursegate"
)

const (
	// ProfileCookie names the visitor profile whose credentials a request uses.
	ProfileCookie = "cg_profile"
	// RequestIDHeader is read from and echoed on every response.
	RequestIDHeader = "X-Request-ID"

	profileMaxAge = 30 * 24 * time.Hour
)

// Profile puts the visitor profile named by the cg_profile cookie into the request context.
// Visitors without a valid cookie get a fresh random profile.
func Profile(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(ProfileCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ProfileCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(profileMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(coursegate.WithProfile(r.Context(), id)))
		})
	}
}

// RequestID copies X-Request-ID into the request context for audit events, generating one
// when the client sent none.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(coursegate.WithRequestID(r.Context(), id)))
	})
}
