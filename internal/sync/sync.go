// Package sync pulls fresh attendance and calendar facts from their source,
// feeds them in as claims, and drives bulk resolution across all users.
package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"staff-status-backend/config"
	"staff-status-backend/internal/manager"
	"staff-status-backend/internal/model"
	"staff-status-backend/internal/store"
	"staff-status-backend/internal/timeutil"
)

// FactSource supplies today's external facts for a user. The default
// implementation simulates them; a real deployment plugs in the attendance
// and calendar systems here.
type FactSource interface {
	AttendanceForToday(user model.User, now time.Time) (*model.AttendanceRecord, error)
	CalendarForToday(user model.User, now time.Time) ([]model.CalendarEvent, error)
}

// Options controls one synchronization pass.
type Options struct {
	ForceRefresh bool
	UserIDs      []string
	Attendance   bool
	Calendar     bool
}

// DefaultOptions syncs both sources without forcing regeneration.
func DefaultOptions() Options {
	return Options{Attendance: true, Calendar: true}
}

// Result reports what one pass did. Errors holds per-phase messages; the
// pass succeeded only when it is empty.
type Result struct {
	AttendanceSynced  int      `json:"attendanceSynced"`
	CalendarSynced    int      `json:"calendarSynced"`
	StatusesRefreshed int      `json:"statusesRefreshed"`
	Errors            []string `json:"errors,omitempty"`
}

// ConsistencyReport is the read-only diagnostic from ValidateConsistency.
type ConsistencyReport struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues"`
}

// Synchronizer is the batch/periodic entry point of the status pipeline.
type Synchronizer struct {
	cfg     *config.SyncConfig
	store   store.Store
	manager *manager.Manager
	source  FactSource
	now     manager.Clock
}

// New creates a Synchronizer. A nil clock means the wall clock.
func New(cfg *config.SyncConfig, s store.Store, m *manager.Manager, source FactSource, clock manager.Clock) *Synchronizer {
	if clock == nil {
		clock = time.Now
	}
	return &Synchronizer{cfg: cfg, store: s, manager: m, source: source, now: clock}
}

// Run starts the periodic synchronization loop. An initial pass runs
// immediately; afterwards the loop ticks at the configured interval until
// the context is canceled.
func (s *Synchronizer) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Synchronizer is disabled. Not starting.")
		return
	}
	log.Println("Starting synchronizer...")

	s.runOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Synchronizer shutting down.")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Synchronizer) runOnce(ctx context.Context) {
	if _, err := s.manager.CleanupExpired(ctx); err != nil {
		log.Printf("Expired-slot cleanup reported errors: %v", err)
	}

	result, err := s.SyncAll(ctx, DefaultOptions())
	if err != nil {
		log.Printf("Sync pass finished with errors: %v", err)
		return
	}
	log.Printf("Sync pass finished: %d attendance, %d calendar, %d statuses refreshed",
		result.AttendanceSynced, result.CalendarSynced, result.StatusesRefreshed)
}

// SyncAll runs the configured phases and refreshes the selected users.
// Phase failures are reported but never abort the remaining phases.
func (s *Synchronizer) SyncAll(ctx context.Context, opts Options) (Result, error) {
	var result Result

	if opts.Attendance {
		n, err := s.syncAttendance(ctx, opts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("attendance sync failed: %v", err))
		} else {
			result.AttendanceSynced = n
		}
	}

	if opts.Calendar {
		n, err := s.syncCalendar(ctx, opts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("calendar sync failed: %v", err))
		} else {
			result.CalendarSynced = n
		}
	}

	n, err := s.refreshStatuses(ctx, opts)
	result.StatusesRefreshed = n
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("status refresh failed: %v", err))
	}

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("sync finished with errors: %s", strings.Join(result.Errors, "; "))
	}
	return result, nil
}

func (s *Synchronizer) syncAttendance(ctx context.Context, opts Options) (int, error) {
	now := s.now()
	today := timeutil.DateString(now)

	if !opts.ForceRefresh {
		count, err := s.store.CountAttendanceOn(ctx, today)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			return 0, nil // Facts for today already exist.
		}
	}

	users, err := s.selectUsers(ctx, opts)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, user := range users {
		existing, err := s.store.AttendanceForUser(ctx, user.ID, today)
		if err != nil {
			return synced, err
		}
		if len(existing) > 0 {
			continue
		}
		rec, err := s.source.AttendanceForToday(user, now)
		if err != nil {
			return synced, err
		}
		if rec == nil {
			continue
		}
		if err := s.store.AddAttendance(ctx, *rec); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

func (s *Synchronizer) syncCalendar(ctx context.Context, opts Options) (int, error) {
	now := s.now()

	if !opts.ForceRefresh {
		count, err := s.store.CountCalendarOn(ctx, now)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			return 0, nil
		}
	}

	users, err := s.selectUsers(ctx, opts)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, user := range users {
		events, err := s.source.CalendarForToday(user, now)
		if err != nil {
			return synced, err
		}
		for _, event := range events {
			if err := s.store.AddCalendarEvent(ctx, event); err != nil {
				return synced, err
			}
			synced++
		}
	}
	return synced, nil
}

func (s *Synchronizer) refreshStatuses(ctx context.Context, opts Options) (int, error) {
	users, err := s.selectUsers(ctx, opts)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	var failures []string
	for _, user := range users {
		if _, err := s.manager.RefreshStatus(ctx, user.ID); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", user.Name, err))
			continue
		}
		refreshed++
	}
	if len(failures) > 0 {
		return refreshed, fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return refreshed, nil
}

func (s *Synchronizer) selectUsers(ctx context.Context, opts Options) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(opts.UserIDs) == 0 {
		return users, nil
	}

	want := make(map[string]bool, len(opts.UserIDs))
	for _, id := range opts.UserIDs {
		want[id] = true
	}
	selected := make([]model.User, 0, len(opts.UserIDs))
	for _, user := range users {
		if want[user.ID] {
			selected = append(selected, user)
		}
	}
	return selected, nil
}

// ValidateConsistency checks that every user has a status record, that no
// status references an unknown user, and that no status carries expired
// slots. Read-only; never mutates state.
func (s *Synchronizer) ValidateConsistency(ctx context.Context) (ConsistencyReport, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return ConsistencyReport{}, err
	}
	statuses, err := s.store.ListStatuses(ctx)
	if err != nil {
		return ConsistencyReport{}, err
	}

	issues := []string{}

	statusByUser := make(map[string]model.UserStatus, len(statuses))
	for _, status := range statuses {
		statusByUser[status.UserID] = status
	}
	knownUsers := make(map[string]bool, len(users))
	for _, user := range users {
		knownUsers[user.ID] = true
		if _, ok := statusByUser[user.ID]; !ok {
			issues = append(issues, fmt.Sprintf("user %s (%s) has no status record", user.Name, user.ID))
		}
	}
	for _, status := range statuses {
		if !knownUsers[status.UserID] {
			issues = append(issues, fmt.Sprintf("status record for non-existent user %s", status.UserID))
		}
	}

	now := s.now()
	for _, status := range statuses {
		expired := 0
		for _, slot := range status.TimeSlots {
			if timeutil.IsExpired(slot.ExpiresAt, now) {
				expired++
			}
		}
		if expired > 0 {
			issues = append(issues, fmt.Sprintf("user %s has %d expired time slots", status.Name, expired))
		}
	}

	return ConsistencyReport{Consistent: len(issues) == 0, Issues: issues}, nil
}
