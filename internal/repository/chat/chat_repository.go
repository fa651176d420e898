// File: internal/repository/chat/chat_repository.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
)

var ErrChatNotFound = errors.New("chat not found")
var ErrInvalidTitle = errors.New("invalid chat title")

type gormChatRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewChatRepository(db *gorm.DB, logger logging.Logger) ChatRepository {
	return &gormChatRepository{db: db, logger: logger}
}

// Create inserts a chat, defaulting the title to the sentinel.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if chat == nil || chat.UserID == 0 {
		return nil, errors.New("chat requires an owning user")
	}
	if strings.TrimSpace(chat.Title) == "" {
		chat.Title = domain.UntitledChat
	}
	if err := validateTitle(chat.Title); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		r.logger.Error("database error creating chat", "user_id", chat.UserID, "error", err)
		return nil, fmt.Errorf("create chat: %w", err)
	}

	r.logger.Debug("chat created", "chat_id", chat.ID, "user_id", chat.UserID)
	return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
	if chatID == 0 {
		return nil, ErrChatNotFound
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).First(&chat, chatID).Error
	return r.handleFindError(err, &chat, "FindByID")
}

// FindByUserID returns the user's chats, most recently active first.
func (r *gormChatRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error) {
	chats := []domain.Chat{}
	if userID == 0 {
		return chats, nil
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error
	if err != nil {
		r.logger.Error("database error listing chats", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// SetGeneratedTitle writes title only while the chat still carries the
// sentinel. It reports false when the chat is gone or already titled.
func (r *gormChatRepository) SetGeneratedTitle(ctx context.Context, chatID uint, title string) (bool, error) {
	if err := validateTitle(title); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND title = ?", chatID, domain.UntitledChat).
		Update("title", title)
	if result.Error != nil {
		r.logger.Error("database error updating title", "chat_id", chatID, "error", result.Error)
		return false, fmt.Errorf("update title: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Rename overwrites the title of a chat owned by userID.
func (r *gormChatRepository) Rename(ctx context.Context, chatID, userID uint, title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(map[string]any{"title": title, "updated_at": time.Now()})
	if result.Error != nil {
		r.logger.Error("database error renaming chat", "chat_id", chatID, "error", result.Error)
		return fmt.Errorf("rename chat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, chatID uint) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", time.Now())
	if result.Error != nil {
		r.logger.Error("database error updating timestamp", "chat_id", chatID, "error", result.Error)
		return fmt.Errorf("touch chat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes a chat owned by userID together with its messages.
func (r *gormChatRepository) Delete(ctx context.Context, chatID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat domain.Chat
		if err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return err
		}
		if err := tx.Where("chat_id = ?", chat.ID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&chat).Error
	})
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return err
		}
		r.logger.Error("database error deleting chat", "chat_id", chatID, "user_id", userID, "error", err)
		return fmt.Errorf("delete chat: %w", err)
	}

	r.logger.Info("chat deleted", "chat_id", chatID, "user_id", userID)
	return nil
}

func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err == nil {
		return chat, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	r.logger.Error("database query failed", "operation", operation, "error", err)
	return nil, fmt.Errorf("%s: %w", operation, err)
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if strings.TrimSpace(title) == "" || n > domain.TitleStoredMaxLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidTitle, domain.TitleStoredMaxLength)
	}
	return nil
}
