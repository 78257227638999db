package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staff-status-backend/internal/model"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrStatusNotFound is returned when a user has no status record yet.
	ErrStatusNotFound = errors.New("user status not found")
)

// Store defines the persistence operations the core depends on. No
// transactional guarantee is assumed across calls; each call is atomic on
// its own.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	GetStatus(ctx context.Context, userID string) (model.UserStatus, error)
	// SetStatus replaces the user's status row and slot set, and appends the
	// history entry when one is given, in a single transaction.
	SetStatus(ctx context.Context, status model.UserStatus, entry *model.StatusEntry) error
	ListStatuses(ctx context.Context) ([]model.UserStatus, error)
	SetStatuses(ctx context.Context, statuses []model.UserStatus) error

	StatusHistory(ctx context.Context, userID string, since time.Time) ([]model.StatusEntry, error)

	AttendanceForUser(ctx context.Context, userID, date string) ([]model.AttendanceRecord, error)
	AddAttendance(ctx context.Context, rec model.AttendanceRecord) error
	CountAttendanceOn(ctx context.Context, date string) (int64, error)

	CalendarForUser(ctx context.Context, userID string, day time.Time) ([]model.CalendarEvent, error)
	AddCalendarEvent(ctx context.Context, event model.CalendarEvent) error
	CountCalendarOn(ctx context.Context, day time.Time) (int64, error)

	// DB exposes the underlying connection for collaborators that manage
	// their own queries (subscription handlers, notification pool).
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "department", "tag", "custom_tags", "work_start", "work_end", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *gormStore) GetUser(ctx context.Context, id string) (model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return user, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) GetStatus(ctx context.Context, userID string) (model.UserStatus, error) {
	var status model.UserStatus
	err := s.db.WithContext(ctx).First(&status, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserStatus{}, fmt.Errorf("%w: %s", ErrStatusNotFound, userID)
	}
	if err != nil {
		return model.UserStatus{}, fmt.Errorf("failed to fetch status for %s: %w", userID, err)
	}
	slots, err := s.slotsForUser(ctx, userID)
	if err != nil {
		return model.UserStatus{}, err
	}
	status.TimeSlots = slots
	return status, nil
}

func (s *gormStore) slotsForUser(ctx context.Context, userID string) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority DESC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch time slots for %s: %w", userID, err)
	}
	return slots, nil
}

func (s *gormStore) SetStatus(ctx context.Context, status model.UserStatus, entry *model.StatusEntry) error {
	slots := status.TimeSlots
	status.TimeSlots = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "current_status", "status_detail", "last_updated", "expires_at"}),
		}).Create(&status).Error; err != nil {
			return fmt.Errorf("failed to save status for %s: %w", status.UserID, err)
		}

		if err := tx.Where("user_id = ?", status.UserID).Delete(&model.TimeSlot{}).Error; err != nil {
			return fmt.Errorf("failed to clear time slots for %s: %w", status.UserID, err)
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return fmt.Errorf("failed to save time slots for %s: %w", status.UserID, err)
			}
		}

		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to append history for %s: %w", status.UserID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) ListStatuses(ctx context.Context) ([]model.UserStatus, error) {
	var statuses []model.UserStatus
	if err := s.db.WithContext(ctx).Order("user_id").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	var slots []model.TimeSlot
	if err := s.db.WithContext(ctx).Order("priority DESC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	slotsByUser := make(map[string][]model.TimeSlot, len(statuses))
	for _, slot := range slots {
		slotsByUser[slot.UserID] = append(slotsByUser[slot.UserID], slot)
	}
	for i := range statuses {
		statuses[i].TimeSlots = slotsByUser[statuses[i].UserID]
	}
	return statuses, nil
}

// SetStatuses is the bulk-replace fallback. Each user's status is written in
// its own transaction; a failure mid-batch leaves earlier writes in place.
func (s *gormStore) SetStatuses(ctx context.Context, statuses []model.UserStatus) error {
	for _, status := range statuses {
		if err := s.SetStatus(ctx, status, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *gormStore) StatusHistory(ctx context.Context, userID string, since time.Time) ([]model.StatusEntry, error) {
	var entries []model.StatusEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ?", userID, since).
		Order("recorded_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status history for %s: %w", userID, err)
	}
	return entries, nil
}

func (s *gormStore) AttendanceForUser(ctx context.Context, userID, date string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attendance for %s: %w", userID, err)
	}
	return records, nil
}

func (s *gormStore) AddAttendance(ctx context.Context, rec model.AttendanceRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"check_in", "check_out", "work_type", "status", "start_time", "end_time"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save attendance record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *gormStore) CountAttendanceOn(ctx context.Context, date string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("date = ?", date).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance on %s: %w", date, err)
	}
	return count, nil
}

func (s *gormStore) CalendarForUser(ctx context.Context, userID string, day time.Time) ([]model.CalendarEvent, error) {
	dayStart, dayEnd := dayBounds(day)
	var events []model.CalendarEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, dayStart, dayEnd).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar events for %s: %w", userID, err)
	}
	return events, nil
}

func (s *gormStore) AddCalendarEvent(ctx context.Context, event model.CalendarEvent) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "start_time", "end_time", "status"}),
	}).Create(&event).Error
	if err != nil {
		return fmt.Errorf("failed to save calendar event %s: %w", event.ID, err)
	}
	return nil
}

func (s *gormStore) CountCalendarOn(ctx context.Context, day time.Time) (int64, error) {
	dayStart, dayEnd := dayBounds(day)
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CalendarEvent{}).
		Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count calendar events: %w", err)
	}
	return count, nil
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}
