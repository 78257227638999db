package model

import "time"

// WorkType distinguishes office check-ins from remote ones.
type WorkType string

const (
	WorkTypeOffice WorkType = "office"
	WorkTypeWFH    WorkType = "wfh"
)

// AttendanceRecord is an external fact from the attendance system: a
// check-in/out pair (or a leave marker) for one user on one calendar day.
// Owned by ingestion; the resolver only reads these.
type AttendanceRecord struct {
	ID     string `gorm:"primaryKey;size:96" json:"id"`
	UserID string `gorm:"size:64;not null;index" json:"userId"`
	Date   string `gorm:"size:10;not null;index" json:"date"` // YYYY-MM-DD

	CheckIn  *time.Time `json:"checkIn,omitempty"`
	CheckOut *time.Time `json:"checkOut,omitempty"`

	WorkType WorkType   `gorm:"size:8;not null" json:"workType"`
	Status   StatusType `gorm:"size:16;not null" json:"status"`

	// Scheduled work interval for the day.
	StartTime time.Time `gorm:"not null" json:"startTime"`
	EndTime   time.Time `gorm:"not null" json:"endTime"`
}
