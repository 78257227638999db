// Package resolver computes one authoritative user status from a work
// schedule plus all currently valid time-windowed claims. Everything in this
// package is pure: given the same context it always produces the same result.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"staff-status-backend/internal/model"
	"staff-status-backend/internal/timeutil"
)

// ErrInvalidTransition marks a status change that violates work-hour policy.
var ErrInvalidTransition = fmt.Errorf("invalid status transition")

// Context carries everything a resolution needs. Attendance and Calendar are
// read-only external facts; ExistingSlots are the persisted claims.
type Context struct {
	User          model.User
	Now           time.Time
	Attendance    []model.AttendanceRecord
	Calendar      []model.CalendarEvent
	ExistingSlots []model.TimeSlot
}

// Result is the outcome of one resolution.
type Result struct {
	Status      model.StatusType
	Detail      string
	LastUpdated time.Time
	ExpiresAt   time.Time
	Slots       []model.TimeSlot

	// Changed reports whether the slot set differs from the input set, so
	// callers can skip redundant persistence and history writes.
	Changed bool
}

// Resolve merges persisted slots with claims freshly derived from external
// facts, expires stale ones, and selects the governing status.
func Resolve(rc Context) Result {
	now := rc.Now
	if now.IsZero() {
		now = time.Now()
	}

	derived := slotsFromFacts(rc.Attendance, rc.Calendar, rc.User, now)

	merged := mergeSlots(append(append([]model.TimeSlot{}, rc.ExistingSlots...), derived...))
	valid := dropExpired(merged, now)

	status, detail := currentStatus(valid, rc.User, now)
	expiresAt := statusExpiration(valid, status, rc.User, now)

	return Result{
		Status:      status,
		Detail:      detail,
		LastUpdated: now,
		ExpiresAt:   expiresAt,
		Slots:       valid,
		Changed:     slotsChanged(rc.ExistingSlots, valid),
	}
}

// slotsFromFacts turns today's attendance records and calendar events into
// time slot claims.
func slotsFromFacts(attendance []model.AttendanceRecord, calendar []model.CalendarEvent, user model.User, now time.Time) []model.TimeSlot {
	var slots []model.TimeSlot
	today := timeutil.DateString(now)

	for _, rec := range attendance {
		if rec.Date != today {
			continue
		}
		if slot, ok := slotFromAttendance(rec, user, now); ok {
			slots = append(slots, slot)
		}
	}

	for _, event := range calendar {
		if !timeutil.SameDay(event.StartTime, now) || event.Status == model.EventCanceled {
			continue
		}
		slots = append(slots, model.TimeSlot{
			UserID:    user.ID,
			SlotID:    "calendar-" + event.ID,
			Status:    model.StatusMeeting,
			Detail:    event.Title,
			Source:    model.SourceCalendar,
			Priority:  model.SourceCalendar.Priority(),
			StartTime: event.StartTime,
			EndTime:   event.EndTime,
			CreatedAt: now,
			ExpiresAt: event.EndTime,
		})
	}

	return slots
}

func slotFromAttendance(rec model.AttendanceRecord, user model.User, now time.Time) (model.TimeSlot, bool) {
	if rec.Status == model.StatusOnLeave {
		return model.TimeSlot{
			UserID:    user.ID,
			SlotID:    "attendance-leave-" + rec.ID,
			Status:    model.StatusOnLeave,
			Source:    model.SourceAttendance,
			Priority:  model.SourceAttendance.Priority(),
			StartTime: rec.StartTime,
			EndTime:   rec.EndTime,
			CreatedAt: now,
			ExpiresAt: rec.EndTime,
		}, true
	}

	if rec.CheckIn == nil {
		return model.TimeSlot{}, false
	}

	workEnd := timeutil.WorkDayEnd(user.Schedule(), *rec.CheckIn)
	if rec.CheckOut != nil {
		workEnd = *rec.CheckOut
	}
	return model.TimeSlot{
		UserID:    user.ID,
		SlotID:    "attendance-work-" + rec.ID,
		Status:    rec.Status,
		Source:    model.SourceAttendance,
		Priority:  model.SourceAttendance.Priority(),
		StartTime: *rec.CheckIn,
		EndTime:   workEnd,
		CreatedAt: now,
		ExpiresAt: ExpirationTime(rec.Status, user.Schedule(), *rec.CheckIn, workEnd),
	}, true
}

// mergeSlots deduplicates by slot id. On an id collision the later entry wins
// when its priority is higher or equal, so freshly derived slots replace
// persisted ones of the same rank. The result is sorted by priority
// descending, then start time ascending.
func mergeSlots(slots []model.TimeSlot) []model.TimeSlot {
	byID := make(map[string]model.TimeSlot, len(slots))
	order := make([]string, 0, len(slots))
	for _, slot := range slots {
		existing, seen := byID[slot.SlotID]
		if !seen {
			order = append(order, slot.SlotID)
			byID[slot.SlotID] = slot
			continue
		}
		if slot.Priority >= existing.Priority {
			byID[slot.SlotID] = slot
		}
	}

	merged := make([]model.TimeSlot, 0, len(byID))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority > merged[j].Priority
		}
		return merged[i].StartTime.Before(merged[j].StartTime)
	})
	return merged
}

func dropExpired(slots []model.TimeSlot, now time.Time) []model.TimeSlot {
	kept := make([]model.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if !timeutil.IsExpired(slot.ExpiresAt, now) {
			kept = append(kept, slot)
		}
	}
	return kept
}

// activeSlot returns the first slot, in merged order, whose interval contains
// now. Both bounds are inclusive here: a slot still governs at its exact end.
func activeSlot(slots []model.TimeSlot, now time.Time) (model.TimeSlot, bool) {
	for _, slot := range slots {
		if !now.Before(slot.StartTime) && !now.After(slot.EndTime) {
			return slot, true
		}
	}
	return model.TimeSlot{}, false
}

// currentStatus selects the governing status: the highest-priority active
// slot, or the schedule-based fallback when no slot contains now.
func currentStatus(slots []model.TimeSlot, user model.User, now time.Time) (model.StatusType, string) {
	if slot, ok := activeSlot(slots, now); ok {
		return slot.Status, slot.Detail
	}

	if !timeutil.IsWorkingDay(now) || !timeutil.IsWithinWorkHours(now, user.Schedule()) {
		return model.StatusOffDuty, ""
	}

	// A leave claim later today from attendance or above already surfaces as
	// upcoming leave.
	for _, slot := range slots {
		if slot.StartTime.After(now) && slot.Priority >= model.SourceAttendance.Priority() && timeutil.SameDay(slot.StartTime, now) {
			if slot.Status == model.StatusOnLeave {
				return model.StatusOnLeave, slot.Detail
			}
			break
		}
	}

	return model.StatusOnDuty, ""
}

// statusExpiration picks when the resolved status must be recomputed: the
// active slot's own expiry, or the status-type rule when no slot governs.
func statusExpiration(slots []model.TimeSlot, status model.StatusType, user model.User, now time.Time) time.Time {
	if slot, ok := activeSlot(slots, now); ok {
		return slot.ExpiresAt
	}
	return ExpirationTime(status, user.Schedule(), now, time.Time{})
}

// ExpirationTime applies the expiration-by-status rule. A zero end means no
// explicit interval end was supplied.
func ExpirationTime(status model.StatusType, schedule timeutil.WorkSchedule, start, end time.Time) time.Time {
	switch status {
	case model.StatusMeeting, model.StatusOnLeave:
		if !end.IsZero() {
			return end
		}
		return timeutil.WorkDayEnd(schedule, start)
	case model.StatusOffDuty:
		return timeutil.NextWorkingDayStart(schedule, start)
	default: // on_duty, wfh, out
		return timeutil.WorkDayEnd(schedule, start)
	}
}

// slotsChanged compares slot sets by id membership and per-id status and
// interval fields.
func slotsChanged(old, updated []model.TimeSlot) bool {
	if len(old) != len(updated) {
		return true
	}

	oldByID := make(map[string]model.TimeSlot, len(old))
	for _, slot := range old {
		oldByID[slot.SlotID] = slot
	}
	for _, slot := range updated {
		prev, ok := oldByID[slot.SlotID]
		if !ok {
			return true
		}
		if prev.Status != slot.Status ||
			!prev.StartTime.Equal(slot.StartTime) ||
			!prev.EndTime.Equal(slot.EndTime) {
			return true
		}
	}
	return false
}

// NewOverrideSlot builds a manual/AI override claim. Overrides always carry
// the highest priority and a fresh unique id.
func NewOverrideSlot(status model.StatusType, detail string, start, end time.Time, user model.User, now time.Time) model.TimeSlot {
	return model.TimeSlot{
		UserID:    user.ID,
		SlotID:    "ai-" + uuid.NewString(),
		Status:    status,
		Detail:    detail,
		Source:    model.SourceAIModified,
		Priority:  model.SourceAIModified.Priority(),
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		ExpiresAt: ExpirationTime(status, user.Schedule(), start, end),
	}
}

// RemoveConflicting drops the existing slot sharing the new slot's id, plus
// any slot whose interval overlaps it at equal or lower priority. Strictly
// higher-priority overlapping slots survive untouched.
func RemoveConflicting(existing []model.TimeSlot, newSlot model.TimeSlot) []model.TimeSlot {
	newRange := timeutil.TimeRange{Start: newSlot.StartTime, End: newSlot.EndTime}

	kept := make([]model.TimeSlot, 0, len(existing))
	for _, slot := range existing {
		if slot.SlotID == newSlot.SlotID {
			continue
		}
		overlaps := timeutil.RangesOverlap(
			timeutil.TimeRange{Start: slot.StartTime, End: slot.EndTime},
			newRange,
		)
		if overlaps && slot.Priority <= newSlot.Priority {
			continue
		}
		kept = append(kept, slot)
	}
	return kept
}

// ValidateTransition rejects work-bound statuses outside the user's working
// day or hours. All other transitions are accepted.
func ValidateTransition(to model.StatusType, user model.User, at time.Time) error {
	switch to {
	case model.StatusOnDuty, model.StatusOut, model.StatusMeeting:
		if !timeutil.IsWorkingDay(at) || !timeutil.IsWithinWorkHours(at, user.Schedule()) {
			return fmt.Errorf("%w: cannot set %s outside working hours", ErrInvalidTransition, to)
		}
	}
	return nil
}
