package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// EntryRepository handles CRUD for daily entries. Every query is scoped to one user.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(ctx context.Context, entry *model.Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// ListByUser returns every entry of the user, newest date first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Entry, error) {
	var entries []model.Entry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *EntryRepository) FindByID(ctx context.Context, userID, entryID uint) (*model.Entry, error) {
	var entry model.Entry
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, entryID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *EntryRepository) Save(ctx context.Context, entry *model.Entry) error {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

// Delete removes one entry of the user. A missing entry yields gorm.ErrRecordNotFound.
func (r *EntryRepository) Delete(ctx context.Context, userID, entryID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, entryID).Delete(&model.Entry{})
	if res.Error != nil {
		return fmt.Errorf("delete entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByTask removes all entries of one task and reports how many were removed.
func (r *EntryRepository) DeleteByTask(ctx context.Context, userID uint, task string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND task = ?", userID, task).Delete(&model.Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
