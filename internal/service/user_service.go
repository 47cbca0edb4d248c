package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payme-bot/internal/models"
	"payme-bot/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserStore is the persistence boundary for chat users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
	SetActive(ctx context.Context, chatID int64, active bool) error
	ListActive(ctx context.Context) ([]*models.User, error)
}

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// GetOrCreate returns the user for a chat id, registering it on first
// contact. New users start active; the allow-list middleware decides
// whether they may actually use the bot.
func (s *UserService) GetOrCreate(ctx context.Context, chatID int64, username, firstName *string) (*models.User, error) {
	user, err := s.users.GetByChatID(ctx, chatID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now().UTC()
	user = &models.User{
		ID:        uuid.New(),
		ChatID:    chatID,
		Username:  username,
		FirstName: firstName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Registered new chat user", zap.Int64("chat_id", chatID))
	return user, nil
}

func (s *UserService) SetActive(ctx context.Context, chatID int64, active bool) error {
	if err := s.users.SetActive(ctx, chatID, active); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *UserService) ListActive(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
