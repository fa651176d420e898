package chat

import (
	"context"

	"github.com/iyunix/go-chatstream/internal/domain"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, id uint) (*domain.Chat, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.Chat, error)
	SetGeneratedTitle(ctx context.Context, chatID uint, title string) (bool, error)
	Rename(ctx context.Context, chatID, userID uint, title string) error
	TouchUpdatedAt(ctx context.Context, chatID uint) error
	Delete(ctx context.Context, chatID, userID uint) error
}
