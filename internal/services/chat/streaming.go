// File: internal/services/chat/streaming.go
package chat

import (
	"context"
	"strings"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
	"github.com/iyunix/go-chatstream/internal/repository/message"
	"github.com/iyunix/go-chatstream/internal/services/ai"
	"github.com/iyunix/go-chatstream/internal/telemetry"
)

// TitleTrigger starts title generation for a chat without waiting for it.
type TitleTrigger interface {
	Trigger(chatID uint)
}

// StreamingService runs one completion stream per request.
type StreamingService struct {
	config      *Config
	chatRepo    chatrepo.ChatRepository
	messageRepo message.MessageRepository
	gateway     ai.Gateway
	titles      TitleTrigger
	logger      logging.Logger
}

func NewStreamingService(
	config *Config,
	chatRepo chatrepo.ChatRepository,
	messageRepo message.MessageRepository,
	gateway ai.Gateway,
	titles TitleTrigger,
	logger logging.Logger,
) *StreamingService {
	return &StreamingService{
		config:      config,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		gateway:     gateway,
		titles:      titles,
		logger:      logger,
	}
}

// HandleStream persists the unsaved turns of an owned chat, streams the
// completion to w and stores the assembled response. chat is nil for
// anonymous streams, which persist nothing.
func (s *StreamingService) HandleStream(ctx context.Context, chat *domain.Chat, turns []IncomingTurn, w FragmentWriter) (*StreamResult, error) {
	result := &StreamResult{}
	if len(turns) == 0 {
		return result, nil
	}
	if err := ValidateTurns(turns); err != nil {
		return nil, err
	}

	var chatID uint
	mode := "anonymous"
	if chat != nil {
		chatID = chat.ID
		mode = "chat"
	}
	telemetry.StreamsTotal.WithLabelValues(mode).Inc()
	ctx, span := telemetry.StartSpan(ctx, "chat.stream",
		telemetry.AttrChatID.Int64(int64(chatID)),
		telemetry.AttrTurns.Int(len(turns)))
	defer span.End()

	if chat != nil {
		if err := s.saveIncomingTurns(ctx, chat.ID, turns); err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
	}

	var reply strings.Builder
	for fragment := range s.gateway.CompleteStreaming(ctx, ProjectTurns(turns)) {
		if ctx.Err() != nil {
			break
		}
		if err := w.WriteFragment(fragment); err != nil {
			s.logger.Info("stream client went away", "chat_id", chatID, "fragments", result.Fragments, "error", err)
			break
		}
		reply.WriteString(fragment)
		result.Fragments++
		telemetry.StreamFragments.Inc()
	}
	result.Response = reply.String()
	span.SetAttributes(telemetry.AttrFragments.Int(result.Fragments))

	if chat == nil {
		return result, nil
	}

	if result.Response != "" {
		result.Persisted = s.saveResponse(chat.ID, result.Response)
	}
	if s.needsTitle(chat) {
		s.titles.Trigger(chat.ID)
		result.TitleTriggered = true
	}

	s.logger.Info("stream finished",
		"chat_id", chat.ID,
		"fragments", result.Fragments,
		"response_length", len(result.Response),
		"title_triggered", result.TitleTriggered)
	return result, nil
}

// saveIncomingTurns appends every turn the client has not seen persisted.
func (s *StreamingService) saveIncomingTurns(ctx context.Context, chatID uint, turns []IncomingTurn) error {
	saved := 0
	for _, turn := range turns {
		if turn.Persisted() {
			continue
		}
		_, err := s.messageRepo.Create(ctx, &domain.Message{
			ChatID:  chatID,
			Type:    turn.Type,
			Content: turn.Content,
		})
		if err != nil {
			s.logger.Error("failed to save incoming turn", "chat_id", chatID, "error", err)
			return NewStorageError("save_turn", chatID, err)
		}
		saved++
	}
	if saved > 0 {
		_ = s.chatRepo.TouchUpdatedAt(ctx, chatID)
	}
	return nil
}

// saveResponse runs on its own context so a severed client does not lose
// what was already generated.
func (s *StreamingService) saveResponse(chatID uint, content string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()

	_, err := s.messageRepo.Create(ctx, &domain.Message{
		ChatID:  chatID,
		Type:    domain.MessageTypeResponse,
		Content: content,
	})
	if err != nil {
		s.logger.Error("failed to save response", "chat_id", chatID, "error", err)
		return false
	}
	_ = s.chatRepo.TouchUpdatedAt(ctx, chatID)
	return true
}

// needsTitle re-reads the chat since a title may have landed while streaming.
func (s *StreamingService) needsTitle(chat *domain.Chat) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SaveTimeout)
	defer cancel()

	if current, err := s.chatRepo.FindByID(ctx, chat.ID); err == nil {
		return !current.HasGeneratedTitle()
	}
	return !chat.HasGeneratedTitle()
}
