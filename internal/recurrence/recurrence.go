// Package recurrence computes the next occurrence of a recurring reminder
// from its current civil date/time and pattern. It is pure: no clock, no I/O.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"remindly/internal/models"
)

var (
	// ErrNoRecurrence is returned for a non-recurring pattern; callers should
	// not ask for a next occurrence in that case.
	ErrNoRecurrence = errors.New("recurrence: pattern does not recur")
	// ErrOverflow is returned when the advanced date leaves the supported
	// civil range.
	ErrOverflow = errors.New("recurrence: next occurrence out of range")
)

// maxYear bounds the civil range; four-digit years keep the stored
// YYYY-MM-DD representation stable.
const maxYear = 9999

// Next advances a civil anchor (date YYYY-MM-DD, clock HH:MM) by one cycle of
// the given pattern and returns the new civil pair. Time-of-day is preserved.
// Monthly advancement clamps to the last valid day of the target month when
// the anchor day does not exist there (Jan 31 -> Feb 28/29).
func Next(date, clock string, pattern models.RecurrencePattern) (string, string, error) {
	anchor, err := time.Parse(models.DateLayout+" "+models.TimeLayout, date+" "+clock)
	if err != nil {
		return "", "", fmt.Errorf("recurrence: invalid anchor %q %q: %w", date, clock, err)
	}

	var next time.Time
	switch pattern {
	case models.RecurrenceDaily:
		next = anchor.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		next = anchor.AddDate(0, 0, 7)
	case models.RecurrenceMonthly:
		next = addMonthClamped(anchor)
	case models.RecurrenceNone:
		return "", "", ErrNoRecurrence
	default:
		return "", "", fmt.Errorf("recurrence: unknown pattern %q", pattern)
	}

	if next.Year() > maxYear {
		return "", "", ErrOverflow
	}
	return next.Format(models.DateLayout), next.Format(models.TimeLayout), nil
}

// addMonthClamped moves t one calendar month forward, keeping the day-of-month
// when it exists in the target month and clamping to the month's last day
// otherwise. time.AddDate alone would normalize Jan 31 into early March.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
