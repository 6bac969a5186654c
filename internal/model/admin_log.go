package model

import "time"

const (
	ActionUpdatedUser = "UPDATED_USER"
	ActionDeletedUser = "DELETED_USER"
)

// AdminLog is an audit record of an admin action against another user.
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      uint      `gorm:"index" json:"adminId"`
	Action       string    `json:"action"`
	TargetUserID uint      `gorm:"index" json:"targetUserId"`
	TargetUser   *User     `gorm:"foreignKey:TargetUserID" json:"targetUser,omitempty"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}
