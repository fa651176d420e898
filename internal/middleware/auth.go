package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/iyunix/go-chatstream/internal/auth"
	"github.com/iyunix/go-chatstream/internal/logging"
)

// TokenValidator resolves a session token to a user ID.
type TokenValidator interface {
	ValidateJWTToken(token string) (uint, error)
}

// NewJWTMiddleware requires a valid auth_token cookie. Browsers are sent to
// /login; API and stream clients get 401.
func NewJWTMiddleware(validator TokenValidator, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil {
				logger.Debug("missing auth cookie", "path", r.URL.Path)
				rejectUnauthenticated(w, r)
				return
			}

			userID, err := validator.ValidateJWTToken(cookie.Value)
			if err != nil {
				logger.Info("invalid auth token", "path", r.URL.Path, "error", err)
				ClearAuthCookie(w)
				rejectUnauthenticated(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// NewOptionalAuthMiddleware attaches the user when a valid cookie is present
// and lets anonymous requests through unchanged.
func NewOptionalAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(auth.CookieName); err == nil {
				if userID, err := validator.ValidateJWTToken(cookie.Value); err == nil {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetAuthCookie stores a session token.
func SetAuthCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// WantsHTML reports whether the client is a browser navigating pages.
func WantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") || strings.Contains(accept, "text/event-stream") {
		return false
	}
	return r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, "/api/")
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if WantsHTML(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
