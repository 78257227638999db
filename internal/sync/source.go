package sync

import (
	"fmt"
	"math/rand"
	"time"

	"staff-status-backend/internal/model"
	"staff-status-backend/internal/timeutil"
)

// SimulatedSource generates plausible attendance and calendar facts for
// today. It stands in for the real ingestion systems behind the FactSource
// boundary.
type SimulatedSource struct {
	rng *rand.Rand
}

// NewSimulatedSource creates a source seeded for reproducible runs. Seed 0
// means a time-based seed.
func NewSimulatedSource(seed int64) *SimulatedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSource{rng: rand.New(rand.NewSource(seed))}
}

// AttendanceForToday generates one attendance record for the user, or nil
// when the scenario produces no record (e.g. a late arrival not yet checked
// in).
func (g *SimulatedSource) AttendanceForToday(user model.User, now time.Time) (*model.AttendanceRecord, error) {
	sched := user.Schedule()
	start, err := timeutil.ParseTimeOfDay(sched.StartTime, now)
	if err != nil {
		return nil, fmt.Errorf("user %s has an invalid schedule: %w", user.ID, err)
	}
	end, err := timeutil.ParseTimeOfDay(sched.EndTime, now)
	if err != nil {
		return nil, fmt.Errorf("user %s has an invalid schedule: %w", user.ID, err)
	}

	today := timeutil.DateString(now)
	rec := model.AttendanceRecord{
		ID:        fmt.Sprintf("att-%s-%s", user.ID, today),
		UserID:    user.ID,
		Date:      today,
		StartTime: start,
		EndTime:   end,
	}

	switch g.rng.Intn(4) {
	case 0: // checked in at the office
		checkIn := start.Add(time.Duration(g.rng.Intn(30)) * time.Minute)
		rec.CheckIn = &checkIn
		rec.WorkType = model.WorkTypeOffice
		rec.Status = model.StatusOnDuty
	case 1: // working from home
		checkIn := start.Add(time.Duration(g.rng.Intn(15)) * time.Minute)
		rec.CheckIn = &checkIn
		rec.WorkType = model.WorkTypeWFH
		rec.Status = model.StatusWFH
	case 2: // on leave for the whole day
		rec.WorkType = model.WorkTypeOffice
		rec.Status = model.StatusOnLeave
	default: // late, no check-in yet
		if now.Before(start) {
			return nil, nil
		}
		rec.WorkType = model.WorkTypeOffice
		rec.Status = model.StatusOffDuty
	}

	return &rec, nil
}

var meetingTitles = []string{
	"Daily Standup",
	"Sprint Planning",
	"Client Review",
	"Team Sync",
	"Product Demo",
	"Code Review",
}

// CalendarForToday generates zero to two meetings for the user within
// business hours.
func (g *SimulatedSource) CalendarForToday(user model.User, now time.Time) ([]model.CalendarEvent, error) {
	count := g.rng.Intn(3)
	events := make([]model.CalendarEvent, 0, count)

	for i := 0; i < count; i++ {
		startHour := 9 + g.rng.Intn(8)
		startMinute := g.rng.Intn(4) * 15
		duration := []int{30, 60, 90}[g.rng.Intn(3)]

		start := time.Date(now.Year(), now.Month(), now.Day(), startHour, startMinute, 0, 0, now.Location())
		end := start.Add(time.Duration(duration) * time.Minute)

		status := model.EventScheduled
		switch {
		case end.Before(now):
			status = model.EventCompleted
		case !start.After(now) && !now.After(end):
			status = model.EventOngoing
		}

		events = append(events, model.CalendarEvent{
			ID:        fmt.Sprintf("event-%s-%s-%d", user.ID, timeutil.DateString(now), i),
			UserID:    user.ID,
			Title:     meetingTitles[g.rng.Intn(len(meetingTitles))],
			StartTime: start,
			EndTime:   end,
			Status:    status,
		})
	}

	return events, nil
}
