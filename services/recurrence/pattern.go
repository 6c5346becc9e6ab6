// File: services/recurrence/pattern.go
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"servana/models"
)

// ErrUnsupportedPattern is returned for a frequency the expander does not know.
var ErrUnsupportedPattern = errors.New("unsupported recurrence pattern")

// NextOccurrence computes the first occurrence of the pattern strictly
// after fromDate. It is a pure function of the pattern and the reference
// date; availability is checked separately before each materialized
// instance is committed.
func NextOccurrence(pattern models.RecurrencePattern, fromDate time.Time) (time.Time, error) {
	from := truncateToDay(fromDate)
	interval := pattern.Interval
	if interval <= 0 {
		interval = 1
	}

	switch pattern.Frequency {
	case models.FrequencyDaily:
		return from.AddDate(0, 0, interval), nil

	case models.FrequencyWeekly:
		weekdays := pattern.Weekdays
		if len(weekdays) == 0 {
			weekdays = []int{int(from.Weekday())}
		}
		sorted := append([]int(nil), weekdays...)
		sort.Ints(sorted)

		// Later weekday in the current week first.
		for _, wd := range sorted {
			if wd > int(from.Weekday()) {
				return from.AddDate(0, 0, wd-int(from.Weekday())), nil
			}
		}
		// Otherwise the earliest selected weekday, interval weeks ahead.
		first := sorted[0]
		daysBack := int(from.Weekday()) - first
		weekStart := from.AddDate(0, 0, -daysBack)
		return weekStart.AddDate(0, 0, 7*interval), nil

	case models.FrequencyMonthly:
		dom := pattern.DayOfMonth
		if dom <= 0 {
			dom = from.Day()
		}
		monthStart := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
		// Still ahead in the current month?
		if candidate := clampToMonth(monthStart, dom); candidate.After(from) {
			return candidate, nil
		}
		return clampToMonth(monthStart.AddDate(0, interval, 0), dom), nil

	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedPattern, pattern.Frequency)
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clampToMonth pins day-of-month to the month's last day when shorter
// (e.g., the 31st in February).
func clampToMonth(monthStart time.Time, dom int) time.Time {
	lastDay := monthStart.AddDate(0, 1, -1).Day()
	if dom > lastDay {
		dom = lastDay
	}
	return time.Date(monthStart.Year(), monthStart.Month(), dom, 0, 0, 0, 0, monthStart.Location())
}
