package user_services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/repository"
	"github.com/iyunix/go-chatstream/internal/repository/user"
)

func newService(t *testing.T) *AuthService {
	t.Helper()
	db, err := repository.Open(repository.MemoryDSN)
	require.NoError(t, err)
	return NewAuthService(user.NewGormUserRepository(db, logging.NewNoOp()), "secret", logging.NewNoOp())
}

func TestRegisterThenLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	created, token, err := s.Register(ctx, "erin_01", "long enough")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := s.ValidateJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	u, token, err := s.Login(ctx, "erin_01", "long enough")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotEmpty(t, token)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, _, err := s.Register(ctx, "x", "long enough")
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "username", vErr.Field)

	_, _, err = s.Register(ctx, "frank", "short")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "password", vErr.Field)

	_, _, err = s.Register(ctx, "frank", "long enough")
	require.NoError(t, err)
	_, _, err = s.Register(ctx, "frank", "long enough")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, _, err := s.Register(ctx, "gina", "long enough")
	require.NoError(t, err)

	_, _, err = s.Login(ctx, "gina", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "nobody", "long enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
