package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/repository"
)

func TestCreateAndFind(t *testing.T) {
	db, err := repository.Open(repository.MemoryDSN)
	require.NoError(t, err)
	repo := NewGormUserRepository(db, logging.NewNoOp())
	ctx := context.Background()

	u := &domain.User{Username: "carol"}
	require.NoError(t, u.HashPassword("correct horse"))
	created, err := repo.Create(ctx, u)
	require.NoError(t, err)

	byName, err := repo.FindByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.Create(ctx, &domain.User{Username: "carol", Password: "x"})
	assert.Error(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "no spaces", Password: "x"})
	assert.Error(t, err)
}

func TestDeleteCascadesChatsAndMessages(t *testing.T) {
	db, err := repository.Open(repository.MemoryDSN)
	require.NoError(t, err)
	repo := NewGormUserRepository(db, logging.NewNoOp())
	ctx := context.Background()

	u, err := repo.Create(ctx, &domain.User{Username: "dave", Password: "hash"})
	require.NoError(t, err)
	chat := &domain.Chat{UserID: u.ID, Title: domain.UntitledChat}
	require.NoError(t, db.Create(chat).Error)
	require.NoError(t, db.Create(&domain.Message{ChatID: chat.ID, Type: domain.MessageTypePrompt, Content: "x"}).Error)

	require.NoError(t, repo.Delete(ctx, u.ID))

	var chats, messages int64
	require.NoError(t, db.Model(&domain.Chat{}).Where("user_id = ?", u.ID).Count(&chats).Error)
	require.NoError(t, db.Model(&domain.Message{}).Where("chat_id = ?", chat.ID).Count(&messages).Error)
	assert.Zero(t, chats)
	assert.Zero(t, messages)

	assert.ErrorIs(t, repo.Delete(ctx, u.ID), ErrUserNotFound)
}
