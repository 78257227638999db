// Package manager orchestrates manual status updates and scheduled
// refreshes: it turns update requests into override claims, invokes the
// resolver, and persists the outcome. All read-resolve-write sequences are
// serialized per user.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staff-status-backend/internal/model"
	"staff-status-backend/internal/resolver"
	"staff-status-backend/internal/store"
)

// ErrSlotNotFound is returned when a slot id does not exist for the user.
var ErrSlotNotFound = errors.New("time slot not found")

// Clock supplies the current time; injectable for deterministic tests.
type Clock func() time.Time

// Notifier is told whenever a user's resolved status changes.
type Notifier interface {
	StatusChanged(userID, name string, status model.StatusType)
}

// UpdateRequest is a manual/AI-driven status change.
type UpdateRequest struct {
	UserID          string
	Status          model.StatusType
	Detail          string
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes int
}

// Query filters status listings.
type Query struct {
	UserIDs        []string
	StatusTypes    []model.StatusType
	IncludeDetails bool
}

// Manager coordinates resolution around the store.
type Manager struct {
	store    store.Store
	now      Clock
	locks    *userLocks
	notifier Notifier
}

// New creates a Manager. A nil clock means the wall clock.
func New(s store.Store, clock Clock) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		store: s,
		now:   clock,
		locks: newUserLocks(),
	}
}

// SetNotifier wires the status-change notifier. Optional.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// UpdateStatus applies a manual status override for one user.
func (m *Manager) UpdateStatus(ctx context.Context, req UpdateRequest) (model.UserStatus, error) {
	unlock := m.locks.lock(req.UserID)
	defer unlock()

	user, err := m.store.GetUser(ctx, req.UserID)
	if err != nil {
		return model.UserStatus{}, err
	}

	if !req.Status.Valid() {
		return model.UserStatus{}, fmt.Errorf("%w: unknown status %q", resolver.ErrInvalidTransition, req.Status)
	}

	now := m.now()
	start := now
	if req.StartTime != nil {
		start = *req.StartTime
	}

	var end time.Time
	switch {
	case req.EndTime != nil:
		end = *req.EndTime
	case req.DurationMinutes > 0:
		end = start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	default:
		end = resolver.ExpirationTime(req.Status, user.Schedule(), start, time.Time{})
	}
	if !end.After(start) {
		return model.UserStatus{}, fmt.Errorf("%w: end time must be after start time", resolver.ErrInvalidTransition)
	}

	if err := resolver.ValidateTransition(req.Status, user, start); err != nil {
		return model.UserStatus{}, err
	}

	override := resolver.NewOverrideSlot(req.Status, req.Detail, start, end, user, now)

	existing, err := m.store.GetStatus(ctx, req.UserID)
	if err != nil && !errors.Is(err, store.ErrStatusNotFound) {
		return model.UserStatus{}, err
	}

	slots := append(resolver.RemoveConflicting(existing.TimeSlots, override), override)

	res, err := m.resolve(ctx, user, now, slots)
	if err != nil {
		return model.UserStatus{}, err
	}

	return m.persist(ctx, user, existing, res, model.EntrySourceAIModified)
}

// RefreshStatus re-runs resolution for one user with no new claims. When the
// resolution reports no change the persisted status is returned untouched,
// avoiding needless history churn.
func (m *Manager) RefreshStatus(ctx context.Context, userID string) (model.UserStatus, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	return m.refreshLocked(ctx, userID)
}

func (m *Manager) refreshLocked(ctx context.Context, userID string) (model.UserStatus, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return model.UserStatus{}, err
	}

	now := m.now()
	existing, statusErr := m.store.GetStatus(ctx, userID)
	if statusErr != nil && !errors.Is(statusErr, store.ErrStatusNotFound) {
		return model.UserStatus{}, statusErr
	}

	res, err := m.resolve(ctx, user, now, existing.TimeSlots)
	if err != nil {
		return model.UserStatus{}, err
	}

	// A time-boundary crossing can change the status without touching the
	// slot set, so the persisted value is compared as well.
	if statusErr == nil && !res.Changed &&
		existing.CurrentStatus == res.Status && existing.StatusDetail == res.Detail {
		return existing, nil
	}

	return m.persist(ctx, user, existing, res, model.EntrySourceSystem)
}

func (m *Manager) resolve(ctx context.Context, user model.User, now time.Time, slots []model.TimeSlot) (resolver.Result, error) {
	attendance, err := m.store.AttendanceForUser(ctx, user.ID, now.Format("2006-01-02"))
	if err != nil {
		return resolver.Result{}, err
	}
	calendar, err := m.store.CalendarForUser(ctx, user.ID, now)
	if err != nil {
		return resolver.Result{}, err
	}

	return resolver.Resolve(resolver.Context{
		User:          user,
		Now:           now,
		Attendance:    attendance,
		Calendar:      calendar,
		ExistingSlots: slots,
	}), nil
}

func (m *Manager) persist(ctx context.Context, user model.User, existing model.UserStatus, res resolver.Result, source model.EntrySource) (model.UserStatus, error) {
	status := model.UserStatus{
		UserID:        user.ID,
		Name:          user.Name,
		CurrentStatus: res.Status,
		StatusDetail:  res.Detail,
		LastUpdated:   res.LastUpdated,
		ExpiresAt:     res.ExpiresAt,
		TimeSlots:     res.Slots,
	}

	var entry *model.StatusEntry
	statusValueChanged := existing.CurrentStatus != res.Status || existing.StatusDetail != res.Detail
	if statusValueChanged {
		entry = &model.StatusEntry{
			UserID:     user.ID,
			Status:     res.Status,
			Detail:     res.Detail,
			Source:     source,
			RecordedAt: res.LastUpdated,
		}
	}

	if err := m.store.SetStatus(ctx, status, entry); err != nil {
		return model.UserStatus{}, err
	}

	if statusValueChanged && m.notifier != nil {
		m.notifier.StatusChanged(user.ID, user.Name, res.Status)
	}
	return status, nil
}

// RefreshAll refreshes every known user. Failures are collected; one user's
// failure never blocks the rest. The returned error joins the per-user
// messages when any occurred.
func (m *Manager) RefreshAll(ctx context.Context) ([]model.UserStatus, error) {
	users, err := m.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var (
		refreshed []model.UserStatus
		failures  []string
	)
	for _, user := range users {
		status, err := m.RefreshStatus(ctx, user.ID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", user.Name, err))
			continue
		}
		refreshed = append(refreshed, status)
	}

	if len(failures) > 0 {
		return refreshed, fmt.Errorf("some refreshes failed: %s", strings.Join(failures, "; "))
	}
	return refreshed, nil
}

// QueryStatuses returns filtered status snapshots. Without IncludeDetails
// the detail text and slot payloads are stripped for lightweight listings.
func (m *Manager) QueryStatuses(ctx context.Context, q Query) ([]model.UserStatus, error) {
	statuses, err := m.store.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}

	var wantIDs map[string]bool
	if len(q.UserIDs) > 0 {
		wantIDs = make(map[string]bool, len(q.UserIDs))
		for _, id := range q.UserIDs {
			wantIDs[id] = true
		}
	}
	var wantStatuses map[model.StatusType]bool
	if len(q.StatusTypes) > 0 {
		wantStatuses = make(map[model.StatusType]bool, len(q.StatusTypes))
		for _, st := range q.StatusTypes {
			wantStatuses[st] = true
		}
	}

	filtered := make([]model.UserStatus, 0, len(statuses))
	for _, status := range statuses {
		if wantIDs != nil && !wantIDs[status.UserID] {
			continue
		}
		if wantStatuses != nil && !wantStatuses[status.CurrentStatus] {
			continue
		}
		if !q.IncludeDetails {
			status.StatusDetail = ""
			status.TimeSlots = nil
		}
		filtered = append(filtered, status)
	}
	return filtered, nil
}

// CleanupExpired refreshes every user holding at least one expired slot and
// returns how many users were affected. Cleanup happens through resolution,
// not as a separate mutation path.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	statuses, err := m.store.ListStatuses(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	cleaned := 0
	var failures []string
	for _, status := range statuses {
		expired := false
		for _, slot := range status.TimeSlots {
			if now.After(slot.ExpiresAt) {
				expired = true
				break
			}
		}
		if !expired {
			continue
		}
		if _, err := m.RefreshStatus(ctx, status.UserID); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", status.UserID, err))
			continue
		}
		cleaned++
	}

	if len(failures) > 0 {
		return cleaned, fmt.Errorf("some cleanups failed: %s", strings.Join(failures, "; "))
	}
	return cleaned, nil
}

// RemoveTimeSlot deletes one slot by id and re-resolves the user's status.
func (m *Manager) RemoveTimeSlot(ctx context.Context, userID, slotID string) (model.UserStatus, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return model.UserStatus{}, err
	}
	existing, err := m.store.GetStatus(ctx, userID)
	if err != nil {
		return model.UserStatus{}, err
	}

	remaining := make([]model.TimeSlot, 0, len(existing.TimeSlots))
	for _, slot := range existing.TimeSlots {
		if slot.SlotID != slotID {
			remaining = append(remaining, slot)
		}
	}
	if len(remaining) == len(existing.TimeSlots) {
		return model.UserStatus{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}

	res, err := m.resolve(ctx, user, m.now(), remaining)
	if err != nil {
		return model.UserStatus{}, err
	}
	return m.persist(ctx, user, existing, res, model.EntrySourceSystem)
}

// StatusHistory returns the user's recent history entries, newest first.
func (m *Manager) StatusHistory(ctx context.Context, userID string, days int) ([]model.StatusEntry, error) {
	if _, err := m.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	since := m.now().AddDate(0, 0, -days)
	return m.store.StatusHistory(ctx, userID, since)
}
