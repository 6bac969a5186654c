package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User stores Telegram user metadata, role and reminder settings.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TelegramID      int64     `gorm:"uniqueIndex" json:"telegramId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Username        string    `json:"username"`
	Role            string    `gorm:"index;default:user" json:"role"`
	ReminderTime    string    `json:"reminderTime"` // "08:00"
	ReminderEnabled bool      `gorm:"default:false" json:"reminderEnabled"`
	APIToken        *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName prefers the Telegram username, then the first/last name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return "user"
	}
	return name
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
