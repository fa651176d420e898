package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/middleware"
	"github.com/iyunix/go-chatstream/internal/services/chat"
	"github.com/iyunix/go-chatstream/internal/telemetry"
)

// EndSignal closes every title stream.
const EndSignal = "</stream>"

type streamRequest struct {
	Messages []chat.IncomingTurn `json:"messages"`
}

// StreamHandler serves the completion stream and the title channel.
type StreamHandler struct {
	registry  chat.ChatProvider
	streaming chat.StreamProvider
	watcher   chat.TitleProvider
	logger    logging.Logger
}

func NewStreamHandler(registry chat.ChatProvider, streaming chat.StreamProvider, watcher chat.TitleProvider, logger logging.Logger) *StreamHandler {
	return &StreamHandler{registry: registry, streaming: streaming, watcher: watcher, logger: logger}
}

// StreamAnonymous streams without a chat; nothing is persisted even for
// signed-in callers.
func (h *StreamHandler) StreamAnonymous(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, nil)
}

// StreamChat streams into a chat the caller owns.
func (h *StreamHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	c, ok := h.authorize(w, r)
	if !ok {
		return
	}
	h.stream(w, r, c)
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, c *domain.Chat) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, "Invalid request body", http.StatusUnprocessableEntity)
		return
	}
	if err := chat.ValidateTurns(req.Messages); err != nil {
		status, message := statusForError(err)
		writeError(w, message, status)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	out := &sseWriter{w: w, flusher: flusher}
	result, err := h.streaming.HandleStream(r.Context(), c, req.Messages, out)
	if err != nil {
		// Headers are gone; the client sees a short stream.
		h.logger.Error("stream failed", "path", r.URL.Path, "error", err)
		return
	}
	h.logger.Debug("stream finished",
		"path", r.URL.Path,
		"fragments", result.Fragments,
		"persisted", result.Persisted,
		"title_triggered", result.TitleTriggered)
}

// TitleStream pushes the chat title once it leaves the sentinel, then the
// end marker. The channel closes after the configured timeout regardless.
func (h *StreamHandler) TitleStream(w http.ResponseWriter, r *http.Request) {
	c, ok := h.authorize(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	telemetry.TitleStreamsActive.Inc()
	defer telemetry.TitleStreamsActive.Dec()

	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	out := &sseWriter{w: w, flusher: flusher}
	emitted, err := h.watcher.Watch(r.Context(), c.ID, func(title string) error {
		payload, err := json.Marshal(map[string]string{"title": title})
		if err != nil {
			return err
		}
		return out.WriteEvent("title-update", string(payload))
	})
	if err != nil {
		h.logger.Warn("title stream ended early", "chat_id", c.ID, "error", err)
	}
	if writeErr := out.WriteEvent("update", EndSignal); writeErr != nil {
		h.logger.Debug("title stream client gone", "chat_id", c.ID)
	}
	h.logger.Debug("title stream closed", "chat_id", c.ID, "emitted", emitted)
}

func (h *StreamHandler) authorize(w http.ResponseWriter, r *http.Request) (*domain.Chat, bool) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	chatID, ok := chatIDFromRequest(r)
	if !ok {
		writeError(w, "Chat not found.", http.StatusNotFound)
		return nil, false
	}
	c, err := h.registry.Authorize(r.Context(), userID, chatID)
	if err != nil {
		status, message := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("chat authorization failed", "chat_id", chatID, "error", err)
		}
		writeError(w, message, status)
		return nil, false
	}
	return c, true
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// lineBreak matches every line ending an SSE reader recognises.
var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// sseWriter frames output as server-sent events and flushes every frame.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// WriteFragment sends one completion fragment as a data frame. Line breaks
// inside the fragment become separate data lines, which readers rejoin with
// "\n".
func (s *sseWriter) WriteFragment(fragment string) error {
	return s.WriteEvent("", fragment)
}

func (s *sseWriter) WriteEvent(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range lineBreak.Split(data, -1) {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
