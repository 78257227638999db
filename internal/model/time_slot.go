package model

import "time"

// TimeSlot is a claim that a user holds a given status during [StartTime, EndTime).
// Slots are immutable once created; superseded slots are deleted, never edited.
type TimeSlot struct {
	UserID    string     `gorm:"primaryKey;size:64" json:"userId"`
	SlotID    string     `gorm:"primaryKey;size:96" json:"id"`
	Status    StatusType `gorm:"size:16;not null" json:"status"`
	Detail    string     `gorm:"size:256" json:"detail,omitempty"`
	Source    SlotSource `gorm:"size:16;not null" json:"source"`
	Priority  int        `gorm:"not null" json:"priority"`
	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   time.Time  `gorm:"not null" json:"endTime"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`

	// ExpiresAt is the instant after which the slot must be discarded even if
	// EndTime has not passed.
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}
