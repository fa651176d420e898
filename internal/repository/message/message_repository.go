// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
)

var ErrMessageNotFound = errors.New("message not found")

type gormMessageRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewMessageRepository(db *gorm.DB, logger logging.Logger) MessageRepository {
	return &gormMessageRepository{db: db, logger: logger}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := validateMessageInput(message); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		// Content is deliberately left out of the log line.
		r.logger.Error("database error creating message", "chat_id", message.ChatID, "error", err)
		return nil, fmt.Errorf("create message: %w", err)
	}

	r.logger.Debug("message created", "message_id", message.ID, "chat_id", message.ChatID, "type", message.Type)
	return message, nil
}

// FindByChatID returns the chat's messages in creation order.
func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error) {
	messages := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("database error fetching messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// FirstPrompt returns the earliest prompt of a chat or ErrMessageNotFound.
func (r *gormMessageRepository) FirstPrompt(ctx context.Context, chatID uint) (*domain.Message, error) {
	var message domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND type = ?", chatID, domain.MessageTypePrompt).
		Order("created_at ASC, id ASC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("first prompt: %w", err)
	}
	return &message, nil
}

func validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ChatID == 0 {
		return errors.New("chat ID is required")
	}
	if _, err := domain.ParseMessageType(string(message.Type)); err != nil {
		return err
	}
	return nil
}
