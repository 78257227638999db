package model

// StatusType is the closed set of activity statuses a user can hold.
type StatusType string

const (
	StatusOnDuty  StatusType = "on_duty"
	StatusOffDuty StatusType = "off_duty"
	StatusOnLeave StatusType = "on_leave"
	StatusWFH     StatusType = "wfh"
	StatusOut     StatusType = "out"
	StatusMeeting StatusType = "meeting"
)

// Valid reports whether s is one of the known status values.
func (s StatusType) Valid() bool {
	switch s {
	case StatusOnDuty, StatusOffDuty, StatusOnLeave, StatusWFH, StatusOut, StatusMeeting:
		return true
	}
	return false
}

// Label returns a human-readable form of the status, used in notifications.
func (s StatusType) Label() string {
	switch s {
	case StatusOnDuty:
		return "on duty"
	case StatusOffDuty:
		return "off duty"
	case StatusOnLeave:
		return "on leave"
	case StatusWFH:
		return "working from home"
	case StatusOut:
		return "out"
	case StatusMeeting:
		return "in a meeting"
	}
	return string(s)
}

// SlotSource identifies where a time slot claim originated.
type SlotSource string

const (
	SourceAttendance SlotSource = "attendance"
	SourceCalendar   SlotSource = "calendar"
	SourceAIModified SlotSource = "ai_modified"
)

// Priority returns the overlap tie-break rank for the source.
// Manual/AI overrides beat attendance, attendance beats calendar.
func (s SlotSource) Priority() int {
	switch s {
	case SourceAIModified:
		return 3
	case SourceAttendance:
		return 2
	case SourceCalendar:
		return 1
	}
	return 0
}

// EntrySource tags a history entry with what caused the change.
type EntrySource string

const (
	EntrySourceSystem     EntrySource = "system"
	EntrySourceAIModified EntrySource = "ai_modified"
)
