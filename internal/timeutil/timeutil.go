// Package timeutil holds the pure time-window helpers used by status
// resolution: schedule parsing, work-day boundaries, overlap and expiry
// checks. No function here has side effects or reads the wall clock.
package timeutil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WorkSchedule is a user's daily work interval as HH:MM time-of-day strings.
type WorkSchedule struct {
	StartTime string
	EndTime   string
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ParseTimeOfDay combines an "HH:MM" spec with the calendar day of ref,
// in ref's location.
func ParseTimeOfDay(spec string, ref time.Time) (time.Time, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time of day %q", spec)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", spec, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", spec, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time of day %q out of range", spec)
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, ref.Location()), nil
}

// IsWithinWorkHours reports whether t falls inside the schedule on t's own
// day, inclusive on both bounds. An unparseable schedule counts as outside.
func IsWithinWorkHours(t time.Time, schedule WorkSchedule) bool {
	start, err := ParseTimeOfDay(schedule.StartTime, t)
	if err != nil {
		return false
	}
	end, err := ParseTimeOfDay(schedule.EndTime, t)
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// IsWorkingDay reports whether t falls on Monday through Friday. The policy
// is fixed; there is no per-user weekend configuration.
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// WorkDayEnd returns the schedule's end time on ref's calendar day.
// Invalid schedules fall back to the end of ref's day.
func WorkDayEnd(schedule WorkSchedule, ref time.Time) time.Time {
	end, err := ParseTimeOfDay(schedule.EndTime, ref)
	if err != nil {
		return time.Date(ref.Year(), ref.Month(), ref.Day(), 23, 59, 0, 0, ref.Location())
	}
	return end
}

// NextWorkingDayStart returns the schedule's start time on the first working
// day strictly after from, skipping weekends.
func NextWorkingDayStart(schedule WorkSchedule, from time.Time) time.Time {
	day := from.AddDate(0, 0, 1)
	for !IsWorkingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	start, err := ParseTimeOfDay(schedule.StartTime, day)
	if err != nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	}
	return start
}

// RangesOverlap is the half-open interval overlap test. Ranges that merely
// touch at a single point (a.End == b.Start) do not overlap.
func RangesOverlap(a, b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// IsExpired reports whether now is strictly past expiresAt.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateString formats t as YYYY-MM-DD, the key format for attendance days.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// MergeOverlappingRanges sorts ranges by start and coalesces overlapping
// ones into maximal spans. Used for reporting; priority resolution never
// merges intervals.
func MergeOverlappingRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) <= 1 {
		return ranges
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]TimeRange, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if RangesOverlap(current, next) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
