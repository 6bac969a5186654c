package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

var (
	ErrSelfEdit    = errors.New("admin cannot edit himself")
	ErrLastAdmin   = errors.New("cannot delete the last admin")
	ErrInvalidRole = errors.New("role must be user or admin")
)

// UserPatch carries admin edits of a user profile; nil fields stay untouched.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Username  *string
	Role      *string
}

// AdminService implements user management with an audit trail.
type AdminService struct {
	userRepo  *repository.UserRepository
	entryRepo *repository.EntryRepository
	logRepo   *repository.AdminLogRepository
	now       func() time.Time
}

func NewAdminService(userRepo *repository.UserRepository, entryRepo *repository.EntryRepository, logRepo *repository.AdminLogRepository) *AdminService {
	return &AdminService{userRepo: userRepo, entryRepo: entryRepo, logRepo: logRepo, now: time.Now}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListAll(ctx)
}

func (s *AdminService) UpdateUser(ctx context.Context, admin *model.User, userID uint, patch UserPatch) (*model.User, error) {
	if admin.ID == userID {
		return nil, ErrSelfEdit
	}
	if patch.Role != nil && !model.ValidRole(*patch.Role) {
		return nil, ErrInvalidRole
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Username != nil {
		user.Username = strings.TrimPrefix(strings.TrimSpace(*patch.Username), "@")
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.audit(ctx, admin, model.ActionUpdatedUser, user.ID)
	return user, nil
}

// DeleteUser removes a user together with their entries.
func (s *AdminService) DeleteUser(ctx context.Context, admin *model.User, userID uint) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.IsAdmin() {
		admins, err := s.userRepo.CountByRole(ctx, model.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.userRepo.DeleteWithEntries(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.audit(ctx, admin, model.ActionDeletedUser, user.ID)
	return nil
}

// UserEntries lists every entry of another user, newest first.
func (s *AdminService) UserEntries(ctx context.Context, userID uint) ([]model.Entry, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.entryRepo.ListByUser(ctx, userID)
}

func (s *AdminService) Logs(ctx context.Context) ([]model.AdminLog, error) {
	return s.logRepo.List(ctx)
}

func (s *AdminService) findUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// audit failures never undo the admin action.
func (s *AdminService) audit(ctx context.Context, admin *model.User, action string, targetID uint) {
	entry := model.AdminLog{
		AdminID:      admin.ID,
		Action:       action,
		TargetUserID: targetID,
		Timestamp:    s.now(),
	}
	if err := s.logRepo.Create(ctx, &entry); err != nil {
		log.Printf("admin audit %s: %v", action, err)
	}
}
