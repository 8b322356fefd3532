package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindly/internal/models"
)

func newReminder(date, clock string) *models.Reminder {
	return &models.Reminder{
		ID:       "rem-1",
		UserID:   "user-1",
		Title:    "water the plants",
		Date:     date,
		Time:     clock,
		Priority: models.PriorityMedium,
		Category: models.CategoryPersonal,
	}
}

func newRecurring(date, clock string, pattern models.RecurrencePattern) *models.Reminder {
	r := newReminder(date, clock)
	r.IsRecurring = true
	r.RecurrencePattern = pattern
	return r
}

func TestMarkCompletedNonRecurring(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	out, err := MarkCompleted(r, now)
	require.NoError(t, err)
	assert.Equal(t, Completed, out)
	assert.True(t, r.IsCompleted)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, now, *r.CompletedAt)
}

func TestMarkCompletedTwiceIsInvalidTransition(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := MarkCompleted(r, now)
	require.NoError(t, err)
	before := *r

	_, err = MarkCompleted(r, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, *r, "state must be unchanged on invalid transition")
}

func TestMarkCompletedRecurringRollsOver(t *testing.T) {
	r := newRecurring("2024-06-01", "09:00", models.RecurrenceDaily)
	r.NotificationSent = true
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	out, err := MarkCompleted(r, now)
	require.NoError(t, err)
	assert.Equal(t, RolledOver, out)
	assert.Equal(t, "2024-06-02", r.Date)
	assert.Equal(t, "09:00", r.Time)
	assert.False(t, r.IsCompleted, "recurring reminder must be re-armed")
	assert.Nil(t, r.CompletedAt)
	assert.False(t, r.NotificationSent, "notification flag resets for the new cycle")
	require.NotNil(t, r.NextOccurrence)
	assert.Equal(t, time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), *r.NextOccurrence)
}

func TestMarkCompletedMonthlyClampsEndOfMonth(t *testing.T) {
	r := newRecurring("2024-03-31", "09:00", models.RecurrenceMonthly)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	out, err := MarkCompleted(r, now)
	require.NoError(t, err)
	assert.Equal(t, RolledOver, out)
	assert.Equal(t, "2024-04-30", r.Date)
	assert.Equal(t, "09:00", r.Time)
	assert.False(t, r.IsCompleted)
	assert.False(t, r.NotificationSent)
}

func TestMarkCompletedRecurringWithoutPattern(t *testing.T) {
	r := newRecurring("2024-06-01", "09:00", models.RecurrenceNone)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := MarkCompleted(r, now)
	assert.ErrorIs(t, err, ErrInvalidRecurrenceState)
	assert.False(t, r.IsCompleted, "malformed record must be left untouched")
	assert.Equal(t, "2024-06-01", r.Date)
}

func TestMarkCompletedRecurringOverflowLeavesRecord(t *testing.T) {
	r := newRecurring("9999-12-31", "09:00", models.RecurrenceDaily)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := MarkCompleted(r, now)
	assert.Error(t, err)
	assert.False(t, r.IsCompleted)
	assert.Equal(t, "9999-12-31", r.Date)
}

func TestMarkNotified(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)

	out, err := MarkNotified(r, now)
	require.NoError(t, err)
	assert.Equal(t, Notified, out)
	assert.True(t, r.NotificationSent)
}

func TestMarkNotifiedTwiceIsIdempotent(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)

	_, err := MarkNotified(r, now)
	require.NoError(t, err)
	_, err = MarkNotified(r, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyNotified)
	assert.True(t, r.NotificationSent)
}

func TestMarkNotifiedBeforeDue(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 8, 59, 0, 0, time.UTC)

	_, err := MarkNotified(r, now)
	assert.ErrorIs(t, err, ErrNotDue)
	assert.False(t, r.NotificationSent)
}

func TestMarkNotifiedExactlyAtOccurrence(t *testing.T) {
	r := newReminder("2024-06-01", "09:00")
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := MarkNotified(r, now)
	assert.NoError(t, err, "occurrence == now counts as due")
}

func TestMarkNotifiedInvalidOccurrence(t *testing.T) {
	r := newReminder("2024-13-01", "09:00")
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := MarkNotified(r, now)
	assert.Error(t, err)
	assert.False(t, r.NotificationSent)
}
