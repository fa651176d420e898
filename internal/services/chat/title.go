// File: internal/services/chat/title.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/notify"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
	"github.com/iyunix/go-chatstream/internal/repository/message"
	"github.com/iyunix/go-chatstream/internal/services/ai"
	"github.com/iyunix/go-chatstream/internal/telemetry"
)

const TitleSystemPrompt = "Produce a concise title of at most 50 characters for the conversation " +
	"that starts with the user's message. Reply with plain text only, without quotes."

// EmptyPromptTitle is used when the first prompt has no visible text.
const EmptyPromptTitle = "New Chat"

const ellipsis = "..."

// TitleGenerator derives a chat title from its first prompt.
type TitleGenerator struct {
	config      *Config
	chatRepo    chatrepo.ChatRepository
	messageRepo message.MessageRepository
	gateway     ai.Gateway
	notifier    notify.Notifier
	logger      logging.Logger

	group singleflight.Group
	wg    sync.WaitGroup
}

func NewTitleGenerator(
	config *Config,
	chatRepo chatrepo.ChatRepository,
	messageRepo message.MessageRepository,
	gateway ai.Gateway,
	notifier notify.Notifier,
	logger logging.Logger,
) *TitleGenerator {
	return &TitleGenerator{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
	}
}

// Trigger runs Generate in a detached goroutine. Concurrent triggers for the
// same chat share one run.
func (g *TitleGenerator) Trigger(chatID uint) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.config.TitleGenerationTimeout)
		defer cancel()

		_, err, _ := g.group.Do(fmt.Sprint(chatID), func() (any, error) {
			return nil, g.Generate(ctx, chatID)
		})
		if err != nil {
			g.logger.Error("title generation failed", "chat_id", chatID, "error", err)
		}
	}()
}

// Wait blocks until every triggered run has returned.
func (g *TitleGenerator) Wait() {
	g.wg.Wait()
}

// Generate titles chatID from its first prompt. Without a prompt it does
// nothing; otherwise the chat always ends with a non-sentinel title.
func (g *TitleGenerator) Generate(ctx context.Context, chatID uint) error {
	ctx, span := telemetry.StartSpan(ctx, "chat.title", telemetry.AttrChatID.Int64(int64(chatID)))
	defer span.End()

	chat, err := g.chatRepo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, chatrepo.ErrChatNotFound) {
			return nil
		}
		return NewStorageError("generate_title", chatID, err)
	}
	if chat.HasGeneratedTitle() {
		return nil
	}

	prompt, err := g.messageRepo.FirstPrompt(ctx, chatID)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			g.logger.Debug("no prompt to title yet", "chat_id", chatID)
			return nil
		}
		return NewStorageError("generate_title", chatID, err)
	}

	reply := g.gateway.Complete(ctx,
		[]ai.Turn{{Role: ai.RoleUser, Content: prompt.Content}},
		ai.WithSystemPrompt(TitleSystemPrompt),
		ai.WithMaxTokens(g.config.TitleMaxTokens),
	)

	outcome := "generated"
	title := ""
	if reply != ai.FailureText {
		title = CleanTitle(reply)
	}
	if title == "" || title == domain.UntitledChat {
		outcome = "fallback"
		title = FallbackTitle(prompt.Content)
	}

	// The chat's own context may be gone; the title must still land.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.SaveTimeout)
	defer cancel()
	applied, err := g.chatRepo.SetGeneratedTitle(saveCtx, chatID, title)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return NewStorageError("generate_title", chatID, err)
	}
	if !applied {
		// Renamed, titled by another instance, or deleted while the model ran.
		g.logger.Debug("chat no longer untitled, dropping generated title", "chat_id", chatID)
		telemetry.TitleGenerations.WithLabelValues("superseded").Inc()
		return nil
	}
	telemetry.TitleGenerations.WithLabelValues(outcome).Inc()

	if err := g.notifier.Publish(saveCtx, notify.TitleUpdate{ChatID: chatID, Title: title}); err != nil {
		g.logger.Warn("title publish failed, watchers will poll", "chat_id", chatID, "error", err)
	}
	g.logger.Info("chat titled", "chat_id", chatID, "outcome", outcome)
	return nil
}

// CleanTitle normalises a model reply into a single-line title.
func CleanTitle(reply string) string {
	title := strings.Join(strings.Fields(reply), " ")
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"`", "`"}} {
		if len(title) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(title, pair[0]) && strings.HasSuffix(title, pair[1]) {
			title = strings.TrimSpace(title[len(pair[0]) : len(title)-len(pair[1])])
		}
	}
	return TruncateTitle(title)
}

// FallbackTitle derives a title from the prompt text itself. Prompts that
// already fit within TitleMaxLength are kept whole rather than cut to 47.
func FallbackTitle(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if title == "" {
		return EmptyPromptTitle
	}
	return TruncateTitle(title)
}

// TruncateTitle keeps titles within TitleMaxLength runes, ending cut titles
// with an ellipsis.
func TruncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= domain.TitleMaxLength {
		return title
	}
	keep := domain.TitleMaxLength - utf8.RuneCountInString(ellipsis)
	return truncateRunes(title, keep) + ellipsis
}

// truncateRunes cuts input to maxLen runes without splitting a character.
func truncateRunes(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}
	count := 0
	for i := range input {
		if count == maxLen {
			return input[:i]
		}
		count++
	}
	return input
}
