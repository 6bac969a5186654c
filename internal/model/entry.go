package model

import (
	"time"

	"gorm.io/gorm"
)

// Entry is one logged task on one day.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	Task        string    `gorm:"index;not null" json:"task"`
	Description string    `json:"description"`
	Date        time.Time `gorm:"index" json:"date"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeSave stores dates in UTC. SQLite keeps them as text, so mixed offsets
// would sort by string instead of by instant.
func (e *Entry) BeforeSave(*gorm.DB) error {
	e.Date = e.Date.UTC()
	return nil
}
