package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

func TestAdminUpdateUser(t *testing.T) {
	db := setupDB(t)
	svc := NewAdminService(repository.NewUserRepository(db), repository.NewEntryRepository(db), repository.NewAdminLogRepository(db))
	ctx := context.Background()
	admin := newUser(t, db, 1, true)
	user := newUser(t, db, 2, false)

	role := model.RoleAdmin
	if _, err := svc.UpdateUser(ctx, admin, admin.ID, UserPatch{Role: &role}); !errors.Is(err, ErrSelfEdit) {
		t.Fatalf("expected ErrSelfEdit, got %v", err)
	}

	bad := "owner"
	if _, err := svc.UpdateUser(ctx, admin, user.ID, UserPatch{Role: &bad}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	if _, err := svc.UpdateUser(ctx, admin, 999, UserPatch{Role: &role}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	name := "@renamed"
	updated, err := svc.UpdateUser(ctx, admin, user.ID, UserPatch{Role: &role, Username: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsAdmin() || updated.Username != "renamed" {
		t.Fatalf("unexpected update: %#v", updated)
	}

	logs, err := svc.Logs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionUpdatedUser || logs[0].AdminID != admin.ID || logs[0].TargetUserID != user.ID {
		t.Fatalf("unexpected audit trail: %#v", logs)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	db := setupDB(t)
	entryRepo := repository.NewEntryRepository(db)
	svc := NewAdminService(repository.NewUserRepository(db), entryRepo, repository.NewAdminLogRepository(db))
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()
	admin := newUser(t, db, 1, true)
	user := newUser(t, db, 2, false)

	if err := entryRepo.Create(ctx, &model.Entry{UserID: user.ID, Task: "Read", Date: fixedNow}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := svc.DeleteUser(ctx, user, admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	entries, err := svc.UserEntries(ctx, user.ID)
	if err != nil || len(entries) != 1 {
		t.Fatalf("user entries: %#v, %v", entries, err)
	}

	if err := svc.DeleteUser(ctx, admin, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteUser(ctx, admin, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.UserEntries(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	left, err := entryRepo.ListByUser(ctx, user.ID)
	if err != nil || len(left) != 0 {
		t.Fatalf("entries must go with the user: %#v, %v", left, err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil || len(users) != 1 || users[0].ID != admin.ID {
		t.Fatalf("unexpected users: %#v, %v", users, err)
	}

	logs, err := svc.Logs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionDeletedUser || logs[0].TargetUser != nil {
		t.Fatalf("unexpected audit trail: %#v", logs)
	}
	if !logs[0].Timestamp.Equal(fixedNow) {
		t.Fatalf("timestamp = %v", logs[0].Timestamp)
	}
}

func TestDeleteAdminWhenAnotherRemains(t *testing.T) {
	db := setupDB(t)
	svc := NewAdminService(repository.NewUserRepository(db), repository.NewEntryRepository(db), repository.NewAdminLogRepository(db))
	ctx := context.Background()
	first := newUser(t, db, 1, true)
	second := newUser(t, db, 2, true)

	if err := svc.DeleteUser(ctx, first, second.ID); err != nil {
		t.Fatalf("delete second admin: %v", err)
	}
	if err := svc.DeleteUser(ctx, first, first.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
}

func TestIssueTokenAndAuthenticate(t *testing.T) {
	db := setupDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Ensure(ctx, 5, "Ann", "", "ann", false)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	first, err := svc.IssueToken(ctx, user)
	if err != nil || first == "" {
		t.Fatalf("issue: %q, %v", first, err)
	}
	found, err := svc.Authenticate(ctx, first)
	if err != nil || found.ID != user.ID {
		t.Fatalf("authenticate: %#v, %v", found, err)
	}

	second, err := svc.IssueToken(ctx, user)
	if err != nil || second == first {
		t.Fatalf("rotate: %q, %v", second, err)
	}
	if _, err := svc.Authenticate(ctx, first); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("old token must stop working, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "  "); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for blank token, got %v", err)
	}
}
