// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-chatstream/internal/domain"
)

// MessageRepository is the append-only message store.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error)
	FirstPrompt(ctx context.Context, chatID uint) (*domain.Message, error)
}
