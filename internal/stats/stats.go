// Package stats keeps per-user reminder counters consistent with lifecycle
// transitions. The aggregator only issues commands to a counter store; it
// never reads counters back, so concurrent reminders cannot lose updates.
package stats

import (
	"context"
	"time"

	"remindly/internal/models"
)

// CounterStore applies counter commands atomically per user.
type CounterStore interface {
	// IncrementCreated bumps totalReminders.
	IncrementCreated(ctx context.Context, userID string) error
	// ApplyCompletion bumps completedReminders and, when countStreak is set,
	// advances the streak bookkeeping for the given civil completion day.
	ApplyCompletion(ctx context.Context, userID, day string, countStreak bool) error
	// ApplyDeletion decrements totalReminders (and completedReminders when
	// the deleted reminder had been completed).
	ApplyDeletion(ctx context.Context, userID string, wasCompleted bool) error
}

// Aggregator translates reminder transitions into counter commands.
type Aggregator struct {
	store CounterStore
}

func New(store CounterStore) *Aggregator {
	return &Aggregator{store: store}
}

// OnCreated records a newly created reminder.
func (a *Aggregator) OnCreated(ctx context.Context, userID string) error {
	return a.store.IncrementCreated(ctx, userID)
}

// OnCompleted records a completion. Recurring rollovers count toward
// completedReminders but not toward the streak.
func (a *Aggregator) OnCompleted(ctx context.Context, userID string, rollover bool, completedAt time.Time) error {
	day := completedAt.Format(models.DateLayout)
	return a.store.ApplyCompletion(ctx, userID, day, !rollover)
}

// OnDeleted records a reminder removed by the external delete command.
func (a *Aggregator) OnDeleted(ctx context.Context, userID string, wasCompleted bool) error {
	return a.store.ApplyDeletion(ctx, userID, wasCompleted)
}

// AdvanceStreak returns the streak value after counting a completion on day,
// given the last counted day (empty for none) and the current streak.
// Consecutive days extend the streak, a gap resets it to 1 and a repeat on
// the same day leaves it unchanged. Days earlier than the last counted day
// are ignored; the streak never moves backwards. Counter stores must apply
// the same rule.
func AdvanceStreak(lastDay, day string, current int64) int64 {
	d, err := time.Parse(models.DateLayout, day)
	if err != nil {
		return current
	}
	if lastDay == "" {
		return 1
	}
	last, err := time.Parse(models.DateLayout, lastDay)
	if err != nil {
		return 1
	}
	switch {
	case d.Equal(last):
		return current
	case d.Equal(last.AddDate(0, 0, 1)):
		return current + 1
	case d.Before(last):
		return current
	default:
		return 1
	}
}
