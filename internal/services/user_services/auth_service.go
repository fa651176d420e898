// File: internal/services/user_services/auth_service.go
package user_services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iyunix/go-chatstream/internal/auth"
	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/repository/user"
)

type AuthService struct {
	userRepo     user.UserRepository
	jwtSecretKey []byte
	tokenTTL     time.Duration
	logger       logging.Logger
}

func NewAuthService(userRepo user.UserRepository, jwtSecretKey string, logger logging.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtSecretKey: []byte(jwtSecretKey),
		tokenTTL:     auth.DefaultTTL,
		logger:       logger,
	}
}

// Login authenticates a user and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.logger.Warn("login attempt with empty credentials",
			"has_username", username != "",
			"has_password", password != "")
		return nil, "", ErrInvalidCredentials
	}

	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			s.logger.Error("login lookup failed", "error", err)
			return nil, "", fmt.Errorf("login: %w", err)
		}
		s.logger.Warn("login failed - user not found", "username", maskUsername(username))
		return nil, "", ErrInvalidCredentials
	}

	if err := u.ValidatePassword(password); err != nil {
		s.logger.Warn("login failed - invalid password", "username", maskUsername(username), "user_id", u.ID)
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(u.ID, s.jwtSecretKey, s.tokenTTL)
	if err != nil {
		s.logger.Error("JWT token generation failed", "error", err, "user_id", u.ID)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("login successful", "username", maskUsername(username), "user_id", u.ID)
	return u, token, nil
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, string, error) {
	u := &domain.User{Username: strings.TrimSpace(username)}
	if err := u.IsValid(); err != nil {
		return nil, "", &ValidationError{Field: "username", Message: err.Error()}
	}
	if err := u.HashPassword(password); err != nil {
		return nil, "", &ValidationError{Field: "password", Message: err.Error()}
	}

	if existing, err := s.userRepo.FindByUsername(ctx, u.Username); err == nil && existing != nil {
		s.logger.Warn("registration failed - username already exists", "username", maskUsername(u.Username))
		return nil, "", ErrUsernameTaken
	}

	created, err := s.userRepo.Create(ctx, u)
	if err != nil {
		s.logger.Error("user creation failed", "error", err, "username", maskUsername(u.Username))
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.GenerateJWT(created.ID, s.jwtSecretKey, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user registered successfully", "username", maskUsername(u.Username), "user_id", created.ID)
	return created, token, nil
}

// ValidateJWTToken validates a session token and returns the user ID.
func (s *AuthService) ValidateJWTToken(tokenString string) (uint, error) {
	userID, err := auth.ValidateToken(tokenString, s.jwtSecretKey)
	if err != nil {
		s.logger.Debug("JWT token validation failed", "error", err)
		return 0, err
	}
	return userID, nil
}

// TokenTTL is the lifetime of issued tokens, used for cookie expiry.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
