// File: internal/services/chat/interface.go
package chat

import (
	"context"

	"github.com/iyunix/go-chatstream/internal/domain"
)

// ChatProvider handles basic chat operations for an owning user.
type ChatProvider interface {
	CreateChat(ctx context.Context, userID uint, title, firstMessage string) (*domain.Chat, bool, error)
	Authorize(ctx context.Context, userID, chatID uint) (*domain.Chat, error)
	GetChat(ctx context.Context, userID, chatID uint) (*domain.Chat, error)
	ListChats(ctx context.Context, userID uint) ([]domain.Chat, error)
	RenameChat(ctx context.Context, userID, chatID uint, title string) (*domain.Chat, error)
	DeleteChat(ctx context.Context, userID, chatID uint) error
}

// StreamProvider handles chat streaming. A nil chat streams without
// persisting anything.
type StreamProvider interface {
	HandleStream(ctx context.Context, chat *domain.Chat, turns []IncomingTurn, w FragmentWriter) (*StreamResult, error)
}

// TitleProvider waits for a chat's generated title.
type TitleProvider interface {
	Watch(ctx context.Context, chatID uint, emit func(title string) error) (bool, error)
}

var (
	_ ChatProvider   = (*Registry)(nil)
	_ StreamProvider = (*StreamingService)(nil)
	_ TitleProvider  = (*TitleWatcher)(nil)
)
