// File: internal/repository/user/gorm_user_repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/iyunix/go-chatstream/internal/domain"
	"github.com/iyunix/go-chatstream/internal/logging"
)

var ErrUserNotFound = errors.New("user not found")

type gormUserRepository struct {
	db     *gorm.DB
	logger logging.Logger
}

func NewGormUserRepository(db *gorm.DB, logger logging.Logger) UserRepository {
	return &gormUserRepository{db: db, logger: logger}
}

func (r *gormUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("user cannot be nil")
	}
	if err := user.IsValid(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if user.Password == "" {
		return nil, errors.New("validation failed: password hash is required")
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.logger.Error("database error creating user", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	r.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	return r.handleFindError(err, &user)
}

func (r *gormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUserNotFound
	}
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return r.handleFindError(err, &user)
}

// Delete removes the user, their chats and every message in those chats.
func (r *gormUserRepository) Delete(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chatIDs := tx.Model(&domain.Chat{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.Chat{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.User{}, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		r.logger.Error("database error deleting user", "user_id", userID, "error", err)
		return fmt.Errorf("delete user: %w", err)
	}
	r.logger.Info("user deleted", "user_id", userID)
	return nil
}

func (r *gormUserRepository) handleFindError(err error, user *domain.User) (*domain.User, error) {
	if err == nil {
		return user, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	r.logger.Error("database query failed", "error", err)
	return nil, fmt.Errorf("find user: %w", err)
}
