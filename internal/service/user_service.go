package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserService registers Telegram accounts and manages their API tokens.
type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Ensure registers or refreshes a Telegram account; admin promotes it.
func (s *UserService) Ensure(ctx context.Context, telegramID int64, firstName, lastName, username string, admin bool) (*model.User, error) {
	return s.userRepo.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username, admin)
}

// IssueToken replaces the user's API token with a fresh one.
func (s *UserService) IssueToken(ctx context.Context, user *model.User) (string, error) {
	token := uuid.New().String()
	user.APIToken = &token
	if err := s.userRepo.Save(ctx, user); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a bearer token to its owner.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.FindByAPIToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
