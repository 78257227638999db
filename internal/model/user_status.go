package model

import "time"

// UserStatus is the resolved view for one user: exactly one row per known user.
type UserStatus struct {
	UserID        string     `gorm:"primaryKey;size:64" json:"userId"`
	Name          string     `gorm:"size:128" json:"name"`
	CurrentStatus StatusType `gorm:"size:16;not null" json:"currentStatus"`
	StatusDetail  string     `gorm:"size:256" json:"statusDetail,omitempty"`
	LastUpdated   time.Time  `gorm:"not null" json:"lastUpdated"`

	// ExpiresAt is when resolution must be re-run even absent new events.
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`

	// TimeSlots are the contributing claims, sorted by priority desc, start asc.
	TimeSlots []TimeSlot `gorm:"foreignKey:UserID;references:UserID" json:"timeSlots,omitempty"`
}

// StatusEntry is one row of the append-only status history log. Entries only
// grow and are never reordered or rewritten.
type StatusEntry struct {
	ID         int64       `gorm:"autoIncrement;primaryKey" json:"id"`
	UserID     string      `gorm:"size:64;not null;index:idx_status_entries_user_time" json:"userId"`
	Status     StatusType  `gorm:"size:16;not null" json:"status"`
	Detail     string      `gorm:"size:256" json:"detail,omitempty"`
	Source     EntrySource `gorm:"size:16;not null" json:"source"`
	RecordedAt time.Time   `gorm:"not null;index:idx_status_entries_user_time" json:"recordedAt"`
}
