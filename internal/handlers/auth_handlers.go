// File: internal/handlers/auth_handlers.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/middleware"
	"github.com/iyunix/go-chatstream/internal/services/user_services"
)

// AuthHandler holds the dependencies for authentication handlers.
type AuthHandler struct {
	auth          *user_services.AuthService
	renderer      *Renderer
	secureCookies bool
	logger        logging.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookies should be set
// whenever the service is reached over TLS.
func NewAuthHandler(auth *user_services.AuthService, renderer *Renderer, secureCookies bool, logger logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, renderer: renderer, secureCookies: secureCookies, logger: logger}
}

// Register creates an account and signs the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	_, token, err := h.auth.Register(r.Context(), username, password)
	if err != nil {
		status, message := http.StatusInternalServerError, "Registration failed. Please try again."
		var validationErr *user_services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			status, message = http.StatusUnprocessableEntity, validationErr.Message
		case errors.Is(err, user_services.ErrUsernameTaken):
			status, message = http.StatusConflict, "That username is taken."
		default:
			h.logger.Error("registration error", "error", err)
		}
		h.renderer.Render(w, status, "register.html", map[string]any{"Error": message, "Username": username})
		return
	}

	middleware.SetAuthCookie(w, token, h.auth.TokenTTL(), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Login validates user credentials, sets the auth cookie and redirects home.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.renderer.Render(w, http.StatusUnprocessableEntity, "login.html", map[string]any{
			"Error": "Username and password are required.", "Username": username,
		})
		return
	}

	_, token, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, user_services.ErrInvalidCredentials) {
			h.logger.Error("login error", "error", err)
		}
		h.renderer.Render(w, http.StatusUnauthorized, "login.html", map[string]any{
			"Error": "Invalid username or password.", "Username": username,
		})
		return
	}

	middleware.SetAuthCookie(w, token, h.auth.TokenTTL(), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
