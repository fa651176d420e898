// File: internal/handlers/chat_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/middleware"
	"github.com/iyunix/go-chatstream/internal/services/chat"
)

type ChatHandler struct {
	registry chat.ChatProvider
	renderer *Renderer
	logger   logging.Logger
}

func NewChatHandler(registry chat.ChatProvider, renderer *Renderer, logger logging.Logger) *ChatHandler {
	return &ChatHandler{registry: registry, renderer: renderer, logger: logger}
}

// chatSummary is the sidebar row served by /api/chats.
type chatSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createChatRequest struct {
	Title        string `json:"title"`
	FirstMessage string `json:"firstMessage"`
}

type renameChatRequest struct {
	Title string `json:"title"`
}

// Index renders the composer, with the chat list for signed-in users.
func (h *ChatHandler) Index(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		chats, err := h.registry.ListChats(r.Context(), userID)
		if err != nil {
			h.logger.Error("failed to list chats", "user_id", userID, "error", err)
			h.renderer.RenderError(w, http.StatusInternalServerError, "Could not load your chats.")
			return
		}
		data["UserID"] = userID
		data["Chats"] = chats
	}
	h.renderer.Render(w, http.StatusOK, "index.html", data)
}

// ListChats returns the caller's chats, newest activity first. Anonymous
// callers get an empty array.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	summaries := []chatSummary{}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, summaries)
		return
	}

	chats, err := h.registry.ListChats(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list chats", "user_id", userID, "error", err)
		writeError(w, "Could not retrieve chats", http.StatusInternalServerError)
		return
	}
	for _, c := range chats {
		title := c.Title
		if title == "" {
			title = domain.UntitledChat
		}
		summaries = append(summaries, chatSummary{ID: c.ID, Title: title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CreateChat accepts a form or JSON body. Browsers are redirected to the new
// chat; JSON clients get the chat and whether to start streaming.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req createChatRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body", http.StatusUnprocessableEntity)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, "Invalid form data", http.StatusUnprocessableEntity)
			return
		}
		req.Title = r.FormValue("title")
		req.FirstMessage = r.FormValue("firstMessage")
	}

	created, autoStream, err := h.registry.CreateChat(r.Context(), userID, req.Title, req.FirstMessage)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if wantsJSON(r) || isJSONBody(r) {
		writeJSON(w, http.StatusCreated, map[string]any{"chat": created, "auto_stream": autoStream})
		return
	}
	target := fmt.Sprintf("/chat/%d", created.ID)
	if autoStream {
		target += "?stream=1"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ShowChat renders a chat with its history.
func (h *ChatHandler) ShowChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	chatID, ok := chatIDFromRequest(r)
	if !ok {
		h.fail(w, r, chat.NewNotFoundError(0))
		return
	}

	c, err := h.registry.GetChat(r.Context(), userID, chatID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, c)
		return
	}

	chats, err := h.registry.ListChats(r.Context(), userID)
	if err != nil {
		h.logger.Warn("sidebar chats unavailable", "user_id", userID, "error", err)
	}
	// The last turn is an unanswered prompt only right after creation.
	autoStream := r.URL.Query().Get("stream") == "1" &&
		len(c.Messages) > 0 && c.Messages[len(c.Messages)-1].Type == domain.MessageTypePrompt

	h.renderer.Render(w, http.StatusOK, "chat.html", map[string]any{
		"UserID":     userID,
		"Chat":       c,
		"Chats":      chats,
		"AutoStream": autoStream,
	})
}

// RenameChat overwrites the title with the caller's choice.
func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	chatID, ok := chatIDFromRequest(r)
	if !ok {
		h.fail(w, r, chat.NewNotFoundError(0))
		return
	}

	var req renameChatRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body", http.StatusUnprocessableEntity)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, "Invalid form data", http.StatusUnprocessableEntity)
			return
		}
		req.Title = r.FormValue("title")
	}

	renamed, err := h.registry.RenameChat(r.Context(), userID, chatID, req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renamed)
}

// DeleteChat removes a chat and its messages.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	chatID, ok := chatIDFromRequest(r)
	if !ok {
		h.fail(w, r, chat.NewNotFoundError(0))
		return
	}

	if err := h.registry.DeleteChat(r.Context(), userID, chatID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("chat request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	if middleware.WantsHTML(r) {
		h.renderer.RenderError(w, status, message)
		return
	}
	writeError(w, message, status)
}
