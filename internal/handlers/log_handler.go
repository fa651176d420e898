package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/middleware"
)

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

// LogHandler forwards browser-side events into the server log.
type LogHandler struct {
	logger logging.Logger
}

func NewLogHandler(logger logging.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// LogFrontendEvent handles incoming log requests from the frontend.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	kv := []any{"source", "client", "client_message", payload.Message, "context", payload.Context, "user_id", userID}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.logger.Error("client log", kv...)
	case "warn", "warning":
		h.logger.Warn("client log", kv...)
	case "debug":
		h.logger.Debug("client log", kv...)
	default:
		h.logger.Info("client log", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
