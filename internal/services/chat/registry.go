// File: internal/services/chat/registry.go
package chat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
	"github.com/iyunix/go-chatstream/internal/repository/message"
)

// Registry owns chat lifecycle and ownership checks.
type Registry struct {
	chatRepo    chatrepo.ChatRepository
	messageRepo message.MessageRepository
	logger      logging.Logger
}

func NewRegistry(chatRepo chatrepo.ChatRepository, messageRepo message.MessageRepository, logger logging.Logger) *Registry {
	return &Registry{chatRepo: chatRepo, messageRepo: messageRepo, logger: logger}
}

// CreateChat creates a chat and, when firstMessage is non-blank, stores it as
// the first prompt. autoStream tells the client to start streaming on arrival.
func (r *Registry) CreateChat(ctx context.Context, userID uint, title, firstMessage string) (*domain.Chat, bool, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > domain.TitleStoredMaxLength {
		return nil, false, NewValidationError("create_chat", "title must be 255 characters or less")
	}

	chat, err := r.chatRepo.Create(ctx, &domain.Chat{UserID: userID, Title: title})
	if err != nil {
		return nil, false, NewStorageError("create_chat", 0, err)
	}

	if strings.TrimSpace(firstMessage) == "" {
		return chat, false, nil
	}

	_, err = r.messageRepo.Create(ctx, &domain.Message{
		ChatID:  chat.ID,
		Type:    domain.MessageTypePrompt,
		Content: firstMessage,
	})
	if err != nil {
		if delErr := r.chatRepo.Delete(ctx, chat.ID, userID); delErr != nil {
			r.logger.Error("failed to remove chat after first message error", "chat_id", chat.ID, "error", delErr)
		}
		return nil, false, NewStorageError("create_chat", chat.ID, err)
	}
	return chat, true, nil
}

// Authorize loads chatID and checks that userID owns it.
func (r *Registry) Authorize(ctx context.Context, userID, chatID uint) (*domain.Chat, error) {
	chat, err := r.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, chatrepo.ErrChatNotFound) {
			return nil, NewNotFoundError(chatID)
		}
		return nil, NewStorageError("authorize", chatID, err)
	}
	if !chat.IsOwnedBy(userID) {
		r.logger.Warn("chat access denied", "chat_id", chatID, "user_id", userID)
		return nil, NewUnauthorizedError(userID, chatID)
	}
	return chat, nil
}

// GetChat returns an owned chat with its messages loaded in order.
func (r *Registry) GetChat(ctx context.Context, userID, chatID uint) (*domain.Chat, error) {
	chat, err := r.Authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := r.messageRepo.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, NewStorageError("get_chat", chatID, err)
	}
	chat.Messages = messages
	return chat, nil
}

func (r *Registry) ListChats(ctx context.Context, userID uint) ([]domain.Chat, error) {
	chats, err := r.chatRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, NewStorageError("list_chats", 0, err)
	}
	return chats, nil
}

func (r *Registry) RenameChat(ctx context.Context, userID, chatID uint, title string) (*domain.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > domain.TitleStoredMaxLength {
		return nil, NewValidationError("rename_chat", "title must be between 1 and 255 characters")
	}

	chat, err := r.Authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if err := r.chatRepo.Rename(ctx, chatID, userID, title); err != nil {
		return nil, NewStorageError("rename_chat", chatID, err)
	}
	chat.Title = title
	return chat, nil
}

func (r *Registry) DeleteChat(ctx context.Context, userID, chatID uint) error {
	if _, err := r.Authorize(ctx, userID, chatID); err != nil {
		return err
	}
	if err := r.chatRepo.Delete(ctx, chatID, userID); err != nil {
		return NewStorageError("delete_chat", chatID, err)
	}
	return nil
}
