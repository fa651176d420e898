// Package notify fans title updates out to open title channels.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned when operating on a closed notifier.
var ErrClosed = errors.New("notifier closed")

// TitleUpdate announces that a chat received a title.
type TitleUpdate struct {
	ChatID uint   `json:"chat_id"`
	Title  string `json:"title"`
}

// Notifier publishes title updates and lets watchers subscribe per chat.
type Notifier interface {
	Publish(ctx context.Context, update TitleUpdate) error
	// Subscribe delivers updates for chatID until cancel is called or ctx ends.
	Subscribe(ctx context.Context, chatID uint) (<-chan TitleUpdate, func(), error)
	Close() error
}

// Subject is the NATS subject carrying title updates for chatID.
func Subject(chatID uint) string {
	return fmt.Sprintf("chatstream.chat.%d.title", chatID)
}
