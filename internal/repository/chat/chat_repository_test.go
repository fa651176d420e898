package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/repository"
)

func setup(t *testing.T) (*gorm.DB, ChatRepository, *domain.User) {
	t.Helper()
	db, err := repository.Open(repository.MemoryDSN)
	require.NoError(t, err)

	user := &domain.User{Username: "alice", Password: "hash"}
	require.NoError(t, db.Create(user).Error)
	return db, NewChatRepository(db, logging.NewNoOp()), user
}

func TestCreateDefaultsToSentinelTitle(t *testing.T) {
	_, repo, user := setup(t)
	ctx := context.Background()

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)
	assert.NotZero(t, chat.ID)
	assert.Equal(t, domain.UntitledChat, chat.Title)

	found, err := repo.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UntitledChat, found.Title)
	assert.False(t, found.HasGeneratedTitle())
}

func TestCreateRejectsLongTitle(t *testing.T) {
	_, repo, user := setup(t)

	_, err := repo.Create(context.Background(), &domain.Chat{UserID: user.ID, Title: strings.Repeat("a", 256)})
	assert.ErrorIs(t, err, ErrInvalidTitle)
}

func TestFindByIDMissing(t *testing.T) {
	_, repo, _ := setup(t)

	_, err := repo.FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestFindByUserIDOrdersByActivity(t *testing.T) {
	_, repo, user := setup(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, &domain.Chat{UserID: user.ID, Title: "first"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Chat{UserID: user.ID, Title: "second"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.TouchUpdatedAt(ctx, first.ID))

	chats, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "first", chats[0].Title)

	none, err := repo.FindByUserID(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRenameIsOwnerScoped(t *testing.T) {
	db, repo, user := setup(t)
	ctx := context.Background()

	other := &domain.User{Username: "mallory", Password: "hash"}
	require.NoError(t, db.Create(other).Error)

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Rename(ctx, chat.ID, other.ID, "stolen"), ErrChatNotFound)
	assert.ErrorIs(t, repo.Rename(ctx, chat.ID, user.ID, "  "), ErrInvalidTitle)
	require.NoError(t, repo.Rename(ctx, chat.ID, user.ID, "Renamed"))

	found, err := repo.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Title)
}

func TestSetGeneratedTitleOnlyReplacesSentinel(t *testing.T) {
	_, repo, user := setup(t)
	ctx := context.Background()

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)

	applied, err := repo.SetGeneratedTitle(ctx, chat.ID, "Go channels")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.SetGeneratedTitle(ctx, chat.ID, "Second guess")
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.SetGeneratedTitle(ctx, 12345, "x")
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go channels", found.Title)
}

func TestSetGeneratedTitleKeepsUserRename(t *testing.T) {
	_, repo, user := setup(t)
	ctx := context.Background()

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)
	require.NoError(t, repo.Rename(ctx, chat.ID, user.ID, "Mine"))

	applied, err := repo.SetGeneratedTitle(ctx, chat.ID, "Generated")
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", found.Title)
}

func TestDeleteCascadesMessages(t *testing.T) {
	db, repo, user := setup(t)
	ctx := context.Background()

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)
	for _, typ := range []domain.MessageType{domain.MessageTypePrompt, domain.MessageTypeResponse, domain.MessageTypePrompt} {
		require.NoError(t, db.Create(&domain.Message{ChatID: chat.ID, Type: typ, Content: "x"}).Error)
	}

	require.NoError(t, repo.Delete(ctx, chat.ID, user.ID))

	var count int64
	require.NoError(t, db.Model(&domain.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err = repo.FindByID(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteByNonOwnerLeavesChat(t *testing.T) {
	_, repo, user := setup(t)
	ctx := context.Background()

	chat, err := repo.Create(ctx, &domain.Chat{UserID: user.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, chat.ID, user.ID+1), ErrChatNotFound)

	chats, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}
