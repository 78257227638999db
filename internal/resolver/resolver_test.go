package resolver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staff-status-backend/internal/model"
	"staff-status-backend/internal/timeutil"
)

// 2025-06-10 is a Tuesday; 2025-06-14 is a Saturday.
func tuesday(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, time.UTC)
}

func testUser() model.User {
	return model.User{
		ID:        "u1",
		Name:      "Alice Zhang",
		WorkStart: "09:00",
		WorkEnd:   "18:00",
	}
}

func slot(id string, status model.StatusType, source model.SlotSource, start, end time.Time) model.TimeSlot {
	return model.TimeSlot{
		UserID:    "u1",
		SlotID:    id,
		Status:    status,
		Source:    source,
		Priority:  source.Priority(),
		StartTime: start,
		EndTime:   end,
		ExpiresAt: end,
	}
}

func TestResolve_NoSlotsDuringWorkHours(t *testing.T) {
	res := Resolve(Context{User: testUser(), Now: tuesday(10, 0)})

	assert.Equal(t, model.StatusOnDuty, res.Status)
	assert.Empty(t, res.Detail)
	assert.Equal(t, tuesday(18, 0), res.ExpiresAt, "default status expires at end of work day")
	assert.False(t, res.Changed)
}

func TestResolve_OffDutyOutsideWorkHours(t *testing.T) {
	res := Resolve(Context{User: testUser(), Now: tuesday(22, 0)})

	assert.Equal(t, model.StatusOffDuty, res.Status)
	// Off duty at night expires at the next working day's start.
	assert.Equal(t, time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), res.ExpiresAt)
}

func TestResolve_OffDutyOnWeekend(t *testing.T) {
	saturday := time.Date(2025, 6, 14, 11, 0, 0, 0, time.UTC)
	res := Resolve(Context{User: testUser(), Now: saturday})

	assert.Equal(t, model.StatusOffDuty, res.Status)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC), res.ExpiresAt, "expires at Monday's work start")
}

func TestResolve_ActiveMeetingSlot(t *testing.T) {
	meeting := slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(10, 30), tuesday(11, 0))
	meeting.Detail = "Quarterly review"

	res := Resolve(Context{
		User:          testUser(),
		Now:           tuesday(10, 45),
		ExistingSlots: []model.TimeSlot{meeting},
	})

	assert.Equal(t, model.StatusMeeting, res.Status)
	assert.Equal(t, "Quarterly review", res.Detail)
	assert.Equal(t, tuesday(11, 0), res.ExpiresAt)
}

func TestResolve_SlotBoundsAreInclusive(t *testing.T) {
	meeting := slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(10, 30), tuesday(11, 0))

	for _, at := range []time.Time{tuesday(10, 30), tuesday(11, 0)} {
		res := Resolve(Context{User: testUser(), Now: at, ExistingSlots: []model.TimeSlot{meeting}})
		assert.Equal(t, model.StatusMeeting, res.Status, "slot should govern at %v", at)
	}

	res := Resolve(Context{User: testUser(), Now: tuesday(11, 1), ExistingSlots: []model.TimeSlot{meeting}})
	assert.Equal(t, model.StatusOnDuty, res.Status, "slot no longer governs past its end")
}

func TestResolve_HigherPriorityWinsOnOverlap(t *testing.T) {
	meeting := slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(10, 0), tuesday(12, 0))
	override := slot("ai-1", model.StatusOut, model.SourceAIModified, tuesday(10, 0), tuesday(12, 0))
	override.Detail = "Client visit"

	res := Resolve(Context{
		User:          testUser(),
		Now:           tuesday(11, 0),
		ExistingSlots: []model.TimeSlot{meeting, override},
	})

	assert.Equal(t, model.StatusOut, res.Status)
	assert.Equal(t, "Client visit", res.Detail)
}

func TestResolve_ExpiredSlotsAreDropped(t *testing.T) {
	stale := slot("ai-old", model.StatusOut, model.SourceAIModified, tuesday(8, 0), tuesday(9, 30))

	res := Resolve(Context{
		User:          testUser(),
		Now:           tuesday(10, 0),
		ExistingSlots: []model.TimeSlot{stale},
	})

	assert.Equal(t, model.StatusOnDuty, res.Status)
	assert.Empty(t, res.Slots)
	assert.True(t, res.Changed, "dropping a slot counts as a change")
}

func TestResolve_AttendanceCheckInBecomesSlot(t *testing.T) {
	checkIn := tuesday(9, 5)
	rec := model.AttendanceRecord{
		ID:        "a1",
		UserID:    "u1",
		Date:      "2025-06-10",
		CheckIn:   &checkIn,
		WorkType:  model.WorkTypeOffice,
		Status:    model.StatusOnDuty,
		StartTime: tuesday(9, 0),
		EndTime:   tuesday(18, 0),
	}

	res := Resolve(Context{
		User:       testUser(),
		Now:        tuesday(10, 0),
		Attendance: []model.AttendanceRecord{rec},
	})

	assert.Equal(t, model.StatusOnDuty, res.Status)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "attendance-work-a1", res.Slots[0].SlotID)
	assert.Equal(t, checkIn, res.Slots[0].StartTime)
	assert.Equal(t, tuesday(18, 0), res.Slots[0].EndTime, "open check-in runs to the work day end")
	assert.True(t, res.Changed)
}

func TestResolve_AttendanceLeaveBecomesSlot(t *testing.T) {
	rec := model.AttendanceRecord{
		ID:        "a2",
		UserID:    "u1",
		Date:      "2025-06-10",
		Status:    model.StatusOnLeave,
		StartTime: tuesday(9, 0),
		EndTime:   tuesday(18, 0),
	}

	res := Resolve(Context{
		User:       testUser(),
		Now:        tuesday(10, 0),
		Attendance: []model.AttendanceRecord{rec},
	})

	assert.Equal(t, model.StatusOnLeave, res.Status)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "attendance-leave-a2", res.Slots[0].SlotID)
}

func TestResolve_IgnoresOtherDaysAndCanceledEvents(t *testing.T) {
	yesterday := model.AttendanceRecord{
		ID: "a3", UserID: "u1", Date: "2025-06-09",
		Status: model.StatusOnLeave, StartTime: tuesday(9, 0), EndTime: tuesday(18, 0),
	}
	canceled := model.CalendarEvent{
		ID: "e9", UserID: "u1", Title: "Canceled sync",
		StartTime: tuesday(9, 30), EndTime: tuesday(10, 30), Status: model.EventCanceled,
	}

	res := Resolve(Context{
		User:       testUser(),
		Now:        tuesday(10, 0),
		Attendance: []model.AttendanceRecord{yesterday},
		Calendar:   []model.CalendarEvent{canceled},
	})

	assert.Equal(t, model.StatusOnDuty, res.Status)
	assert.Empty(t, res.Slots)
}

func TestResolve_UpcomingLeaveLaterToday(t *testing.T) {
	leave := slot("attendance-leave-a4", model.StatusOnLeave, model.SourceAttendance, tuesday(14, 0), tuesday(18, 0))

	res := Resolve(Context{
		User:          testUser(),
		Now:           tuesday(10, 0),
		ExistingSlots: []model.TimeSlot{leave},
	})

	assert.Equal(t, model.StatusOnLeave, res.Status, "an upcoming leave claim surfaces early")
}

func TestResolve_UpcomingCalendarMeetingDoesNotSurface(t *testing.T) {
	meeting := slot("calendar-e2", model.StatusMeeting, model.SourceCalendar, tuesday(14, 0), tuesday(15, 0))

	res := Resolve(Context{
		User:          testUser(),
		Now:           tuesday(10, 0),
		ExistingSlots: []model.TimeSlot{meeting},
	})

	assert.Equal(t, model.StatusOnDuty, res.Status)
}

func TestResolve_SlotsChangedDetection(t *testing.T) {
	existing := slot("ai-1", model.StatusOut, model.SourceAIModified, tuesday(10, 0), tuesday(12, 0))

	// Same set in, same set out: no change.
	res := Resolve(Context{User: testUser(), Now: tuesday(11, 0), ExistingSlots: []model.TimeSlot{existing}})
	assert.False(t, res.Changed)

	// A re-derived slot with a shifted interval is a change.
	moved := existing
	moved.EndTime = tuesday(13, 0)
	moved.ExpiresAt = tuesday(13, 0)
	res = Resolve(Context{User: testUser(), Now: tuesday(11, 0), ExistingSlots: []model.TimeSlot{existing, moved}})
	assert.True(t, res.Changed)
}

func TestMergeSlots_LaterEntryWinsOnEqualPriority(t *testing.T) {
	first := slot("attendance-work-a1", model.StatusOnDuty, model.SourceAttendance, tuesday(9, 0), tuesday(12, 0))
	second := slot("attendance-work-a1", model.StatusOnDuty, model.SourceAttendance, tuesday(9, 0), tuesday(17, 0))

	merged := mergeSlots([]model.TimeSlot{first, second})
	require.Len(t, merged, 1)
	assert.Equal(t, tuesday(17, 0), merged[0].EndTime)
}

func TestMergeSlots_Ordering(t *testing.T) {
	early := slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(9, 0), tuesday(10, 0))
	late := slot("calendar-e2", model.StatusMeeting, model.SourceCalendar, tuesday(14, 0), tuesday(15, 0))
	override := slot("ai-1", model.StatusOut, model.SourceAIModified, tuesday(13, 0), tuesday(14, 0))

	merged := mergeSlots([]model.TimeSlot{late, override, early})
	require.Len(t, merged, 3)
	assert.Equal(t, "ai-1", merged[0].SlotID, "highest priority first")
	assert.Equal(t, "calendar-e1", merged[1].SlotID, "then by start time")
	assert.Equal(t, "calendar-e2", merged[2].SlotID)
}

func TestExpirationTime(t *testing.T) {
	schedule := timeutil.WorkSchedule{StartTime: "09:00", EndTime: "18:00"}

	testCases := []struct {
		name   string
		status model.StatusType
		start  time.Time
		end    time.Time
		want   time.Time
	}{
		{"meeting with explicit end", model.StatusMeeting, tuesday(10, 0), tuesday(11, 0), tuesday(11, 0)},
		{"meeting without end", model.StatusMeeting, tuesday(10, 0), time.Time{}, tuesday(18, 0)},
		{"leave with explicit end", model.StatusOnLeave, tuesday(9, 0), tuesday(18, 0), tuesday(18, 0)},
		{"off duty rolls to next working day", model.StatusOffDuty, tuesday(19, 0), time.Time{}, time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)},
		{"on duty ends with the work day", model.StatusOnDuty, tuesday(10, 0), time.Time{}, tuesday(18, 0)},
		{"wfh ends with the work day", model.StatusWFH, tuesday(10, 0), tuesday(12, 0), tuesday(18, 0)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExpirationTime(tc.status, schedule, tc.start, tc.end))
		})
	}
}

func TestNewOverrideSlot(t *testing.T) {
	user := testUser()
	got := NewOverrideSlot(model.StatusWFH, "Home office", tuesday(10, 0), tuesday(18, 0), user, tuesday(10, 0))

	assert.True(t, strings.HasPrefix(got.SlotID, "ai-"))
	assert.Equal(t, model.SourceAIModified, got.Source)
	assert.Equal(t, 3, got.Priority)
	assert.Equal(t, tuesday(18, 0), got.ExpiresAt)

	other := NewOverrideSlot(model.StatusWFH, "", tuesday(10, 0), tuesday(18, 0), user, tuesday(10, 0))
	assert.NotEqual(t, got.SlotID, other.SlotID, "override ids must be unique")
}

func TestRemoveConflicting(t *testing.T) {
	meeting := slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(10, 0), tuesday(11, 0))
	later := slot("calendar-e2", model.StatusMeeting, model.SourceCalendar, tuesday(15, 0), tuesday(16, 0))
	override := slot("ai-1", model.StatusOut, model.SourceAIModified, tuesday(9, 30), tuesday(12, 0))

	kept := RemoveConflicting([]model.TimeSlot{meeting, later}, override)
	require.Len(t, kept, 1)
	assert.Equal(t, "calendar-e2", kept[0].SlotID, "only the overlapping lower-priority slot is displaced")

	// A lower-priority newcomer cannot displace a higher-priority slot.
	newMeeting := slot("calendar-e3", model.StatusMeeting, model.SourceCalendar, tuesday(10, 0), tuesday(11, 0))
	kept = RemoveConflicting([]model.TimeSlot{override}, newMeeting)
	require.Len(t, kept, 1)
	assert.Equal(t, "ai-1", kept[0].SlotID)

	// Same id is always replaced.
	kept = RemoveConflicting([]model.TimeSlot{meeting}, slot("calendar-e1", model.StatusMeeting, model.SourceCalendar, tuesday(13, 0), tuesday(14, 0)))
	assert.Empty(t, kept)
}

func TestValidateTransition(t *testing.T) {
	user := testUser()

	assert.NoError(t, ValidateTransition(model.StatusOnDuty, user, tuesday(10, 0)))
	assert.NoError(t, ValidateTransition(model.StatusOnLeave, user, tuesday(22, 0)), "leave is allowed any time")
	assert.NoError(t, ValidateTransition(model.StatusWFH, user, tuesday(22, 0)))

	err := ValidateTransition(model.StatusOnDuty, user, tuesday(22, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	saturday := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	err = ValidateTransition(model.StatusMeeting, user, saturday)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
