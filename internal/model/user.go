package model

import (
	"time"

	"staff-status-backend/internal/timeutil"
)

// User represents an employee whose status is tracked.
type User struct {
	ID         string   `gorm:"primaryKey;size:64" json:"id"`
	Name       string   `gorm:"size:128;not null" json:"name"`
	Department string   `gorm:"size:128" json:"department"`
	Tag        string   `gorm:"size:128" json:"tag,omitempty"`
	CustomTags []string `gorm:"serializer:json" json:"customTags,omitempty"`

	// Work schedule as HH:MM time-of-day strings, e.g. "09:00".
	WorkStart string `gorm:"size:8;not null" json:"workStart"`
	WorkEnd   string `gorm:"size:8;not null" json:"workEnd"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Schedule returns the user's work schedule in the form the time utilities expect.
func (u *User) Schedule() timeutil.WorkSchedule {
	return timeutil.WorkSchedule{StartTime: u.WorkStart, EndTime: u.WorkEnd}
}
