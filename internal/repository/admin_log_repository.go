package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// AdminLogRepository stores the admin audit trail.
type AdminLogRepository struct {
	db *gorm.DB
}

func NewAdminLogRepository(db *gorm.DB) *AdminLogRepository {
	return &AdminLogRepository{db: db}
}

func (r *AdminLogRepository) Create(ctx context.Context, entry *model.AdminLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create admin log: %w", err)
	}
	return nil
}

// List returns the audit trail newest first with target users attached when they still exist.
func (r *AdminLogRepository) List(ctx context.Context) ([]model.AdminLog, error) {
	var logs []model.AdminLog
	if err := r.db.WithContext(ctx).Preload("TargetUser").
		Order("timestamp DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
