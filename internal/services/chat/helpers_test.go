package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/notify"
	"github.com/iyunix/go-chatstream/internal/repository"
	chatrepo "github.com/iyunix/go-chatstream/internal/repository/chat"
	"github.com/iyunix/go-chatstream/internal/repository/message"
	"github.com/iyunix/go-chatstream/internal/services/ai"
)

type fixture struct {
	db        *gorm.DB
	chats     chatrepo.ChatRepository
	messages  message.MessageRepository
	stub      *ai.StubProvider
	notifier  *notify.MemoryNotifier
	config    *Config
	titles    *TitleGenerator
	streaming *StreamingService
	watcher   *TitleWatcher
	registry  *Registry
	user      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.Open(repository.MemoryDSN)
	require.NoError(t, err)

	logger := logging.NewNoOp()
	f := &fixture{
		db:       db,
		chats:    chatrepo.NewChatRepository(db, logger),
		messages: message.NewMessageRepository(db, logger),
		stub:     ai.NewStubProvider(),
		notifier: notify.NewMemoryNotifier(),
		config:   DefaultConfig(),
	}
	f.config.TitlePollInterval = 10 * time.Millisecond
	f.config.TitleStreamTimeout = 200 * time.Millisecond

	aiCfg := ai.DefaultConfig()
	aiCfg.RequestsPerSecond = 0
	gateway := ai.NewGateway(f.stub, aiCfg, logger)

	f.titles = NewTitleGenerator(f.config, f.chats, f.messages, gateway, f.notifier, logger)
	f.streaming = NewStreamingService(f.config, f.chats, f.messages, gateway, f.titles, logger)
	f.watcher = NewTitleWatcher(f.config, f.chats, f.notifier, logger)
	f.registry = NewRegistry(f.chats, f.messages, logger)

	f.user = &domain.User{Username: "tester", Password: "hash"}
	require.NoError(t, db.Create(f.user).Error)
	return f
}

func (f *fixture) newChat(t *testing.T, title string) *domain.Chat {
	t.Helper()
	chat, err := f.chats.Create(context.Background(), &domain.Chat{UserID: f.user.ID, Title: title})
	require.NoError(t, err)
	return chat
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

type recorder struct {
	fragments []string
	failAfter int
}

func (r *recorder) WriteFragment(fragment string) error {
	if r.failAfter > 0 && len(r.fragments) == r.failAfter {
		return errClientGone
	}
	r.fragments = append(r.fragments, fragment)
	return nil
}

var errClientGone = errors.New("client gone")

func uintPtr(v uint) *uint { return &v }
