// Package lifecycle implements the reminder state machine. Functions here
// mutate only the passed record; persisting the result and holding the
// per-reminder write guard is the caller's responsibility.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"remindly/internal/models"
	"remindly/internal/recurrence"
)

var (
	// ErrInvalidTransition signals completing an already-completed reminder.
	// Callers surface it as a no-op, not a failure.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")
	// ErrAlreadyNotified signals a repeated notification ack for the same
	// occurrence. Idempotent no-op for callers.
	ErrAlreadyNotified = errors.New("lifecycle: already notified")
	// ErrNotDue signals a notification ack for an occurrence still in the future.
	ErrNotDue = errors.New("lifecycle: occurrence not due")
	// ErrInvalidRecurrenceState signals a recurring reminder whose pattern
	// cannot produce a next occurrence. The record is left untouched and must
	// be corrected externally; it is never silently re-armed.
	ErrInvalidRecurrenceState = errors.New("lifecycle: invalid recurrence state")
)

// Outcome names the transition that was applied.
type Outcome int

const (
	// Completed: a non-recurring reminder reached its terminal state.
	Completed Outcome = iota
	// RolledOver: a recurring reminder was completed and re-armed for the
	// next occurrence in the same transition.
	RolledOver
	// Notified: the current occurrence was marked as dispatched.
	Notified
)

// MarkCompleted applies the complete (and, for recurring reminders,
// complete-and-reschedule) transition. The rollover is part of the same call:
// a recurring reminder is never left resting in a completed state.
func MarkCompleted(r *models.Reminder, now time.Time) (Outcome, error) {
	if r.IsCompleted {
		return 0, ErrInvalidTransition
	}

	if !r.IsRecurring {
		r.IsCompleted = true
		r.CompletedAt = &now
		r.NextOccurrence = nil
		r.UpdatedAt = now
		return Completed, nil
	}

	nextDate, nextTime, err := recurrence.Next(r.Date, r.Time, r.RecurrencePattern)
	if err != nil {
		if errors.Is(err, recurrence.ErrNoRecurrence) {
			// isRecurring set but pattern is none: malformed record.
			return 0, fmt.Errorf("%w: reminder %s: %v", ErrInvalidRecurrenceState, r.ID, err)
		}
		return 0, fmt.Errorf("lifecycle: advance reminder %s: %w", r.ID, err)
	}

	r.Date = nextDate
	r.Time = nextTime
	r.IsCompleted = false
	r.CompletedAt = nil
	r.NotificationSent = false
	r.UpdatedAt = now
	if occ, err := r.OccurrenceAt(now.Location()); err == nil {
		r.NextOccurrence = &occ
	}
	return RolledOver, nil
}

// MarkNotified acknowledges a dispatched notification for the current
// occurrence. Valid only once per occurrence and only once the occurrence
// instant has passed.
func MarkNotified(r *models.Reminder, now time.Time) (Outcome, error) {
	if r.NotificationSent {
		return 0, ErrAlreadyNotified
	}
	occ, err := r.OccurrenceAt(now.Location())
	if err != nil {
		return 0, err
	}
	if occ.After(now) {
		return 0, ErrNotDue
	}
	r.NotificationSent = true
	r.UpdatedAt = now
	return Notified, nil
}
