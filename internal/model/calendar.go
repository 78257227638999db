package model

import "time"

// EventStatus is the lifecycle state of a calendar event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCanceled  EventStatus = "canceled"
)

// CalendarEvent is an external fact from the calendar system. Non-canceled
// events on the current day become meeting claims during resolution.
type CalendarEvent struct {
	ID        string      `gorm:"primaryKey;size:96" json:"id"`
	UserID    string      `gorm:"size:64;not null;index" json:"userId"`
	Title     string      `gorm:"size:256" json:"title"`
	StartTime time.Time   `gorm:"not null;index" json:"startTime"`
	EndTime   time.Time   `gorm:"not null" json:"endTime"`
	Status    EventStatus `gorm:"size:16;not null" json:"status"`
}
