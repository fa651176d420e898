// File: internal/services/chat/title_watcher.go
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/notify"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
)

// TitleWatcher backs the title notification channel: it waits for a chat to
// leave the sentinel title, by notification or by polling, up to a timeout.
type TitleWatcher struct {
	config   *Config
	chatRepo chatrepo.ChatRepository
	notifier notify.Notifier
	logger   logging.Logger
}

func NewTitleWatcher(config *Config, chatRepo chatrepo.ChatRepository, notifier notify.Notifier, logger logging.Logger) *TitleWatcher {
	return &TitleWatcher{config: config, chatRepo: chatRepo, notifier: notifier, logger: logger}
}

// Watch calls emit at most once with the chat's title. It reports whether a
// title was emitted; timing out or losing ctx is not an error.
func (w *TitleWatcher) Watch(ctx context.Context, chatID uint, emit func(title string) error) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.TitleStreamTimeout)
	defer cancel()

	// Subscribe before the first read so an update between the two is not lost.
	updates, unsubscribe, err := w.notifier.Subscribe(ctx, chatID)
	if err != nil {
		w.logger.Warn("title subscription unavailable, polling only", "chat_id", chatID, "error", err)
		updates = nil
	} else {
		defer unsubscribe()
	}

	if title, done, err := w.check(ctx, chatID); done || err != nil {
		if err != nil || title == "" {
			return false, err
		}
		return true, emit(title)
	}

	ticker := time.NewTicker(w.config.TitlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case update, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if update.Title != "" && update.Title != domain.UntitledChat {
				return true, emit(update.Title)
			}
		case <-ticker.C:
			title, done, err := w.check(ctx, chatID)
			if err != nil {
				w.logger.Warn("title poll failed", "chat_id", chatID, "error", err)
				continue
			}
			if done {
				if title == "" {
					return false, nil
				}
				return true, emit(title)
			}
		}
	}
}

// check returns the title once the chat has one. done with an empty title
// means the chat disappeared.
func (w *TitleWatcher) check(ctx context.Context, chatID uint) (string, bool, error) {
	chat, err := w.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, chatrepo.ErrChatNotFound) {
			return "", true, nil
		}
		if ctx.Err() != nil {
			return "", false, nil
		}
		return "", false, err
	}
	if chat.HasGeneratedTitle() {
		return chat.Title, true, nil
	}
	return "", false, nil
}
