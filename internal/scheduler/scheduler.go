// Package scheduler scans pending reminders and dispatches notifications for
// the ones whose occurrence has passed. The scan itself is read-only; state
// changes go through the store's conditional acknowledgement so a concurrent
// completion always wins over a pending dispatch.
package scheduler

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"remindly/internal/models"
	"remindly/pkg/logger"
)

// Store is the narrow persistence contract the scheduler depends on.
type Store interface {
	// Get returns the current state of a single reminder.
	Get(ctx context.Context, id string) (*models.Reminder, error)
	// ListPending returns reminders that are neither completed nor notified.
	ListPending(ctx context.Context) ([]models.Reminder, error)
	// AckNotified marks the reminder's current occurrence as notified, but
	// only while it is still pending and unsent. Returns false when the
	// guard fails (completed or already acknowledged concurrently).
	AckNotified(ctx context.Context, id string, now time.Time) (bool, error)
}

// Transport delivers a notification. An error means the dispatch is
// unconfirmed and the reminder must not be acknowledged.
type Transport interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Scheduler periodically emits at-most-one notification per due occurrence.
type Scheduler struct {
	store     Store
	transport Transport
	interval  time.Duration
	loc       *time.Location
	scans     singleflight.Group
}

// New returns a scheduler scanning every interval. Occurrences are resolved
// in loc; pass time.Local for device-local semantics.
func New(store Store, transport Transport, interval time.Duration, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{store: store, transport: transport, interval: interval, loc: loc}
}

// Due filters and orders the reminders that need a notification at now:
// not completed, not yet notified, occurrence at or before now. Results are
// ordered by occurrence instant, ties broken by ID, so repeated scans over
// the same input are deterministic. Records with an unparsable occurrence
// are skipped; they must not sink the rest of the batch.
func Due(now time.Time, reminders []models.Reminder) []models.Reminder {
	type entry struct {
		r   models.Reminder
		occ time.Time
	}
	var due []entry
	for _, r := range reminders {
		if r.IsCompleted || r.NotificationSent {
			continue
		}
		occ, err := r.OccurrenceAt(now.Location())
		if err != nil {
			continue
		}
		if occ.After(now) {
			continue
		}
		due = append(due, entry{r: r, occ: occ})
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].occ.Equal(due[j].occ) {
			return due[i].occ.Before(due[j].occ)
		}
		return due[i].r.ID < due[j].r.ID
	})
	out := make([]models.Reminder, len(due))
	for i, e := range due {
		out[i] = e.r
	}
	return out
}

// Run drives periodic scans until ctx is cancelled. Scans are single-flight:
// a tick that fires while the previous dispatch cycle is still in flight
// joins it instead of starting a second scan.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Info(ctx, "Notification scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Notification scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Scan(ctx, time.Now().In(s.loc)); err != nil {
				logger.Error(ctx, "Scheduler scan failed", "error", err)
			}
		}
	}
}

// Scan performs one scan-dispatch-acknowledge cycle. Safe to call on demand;
// concurrent callers share a single execution.
func (s *Scheduler) Scan(ctx context.Context, now time.Time) error {
	_, err, _ := s.scans.Do("scan", func() (interface{}, error) {
		return nil, s.scan(ctx, now)
	})
	return err
}

func (s *Scheduler) scan(ctx context.Context, now time.Time) error {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, r := range Due(now, pending) {
		s.dispatchOne(ctx, r, now)
	}
	return nil
}

// dispatchOne delivers a single notification and acknowledges it. Failures
// are logged and isolated; the next due reminder still gets its turn.
func (s *Scheduler) dispatchOne(ctx context.Context, r models.Reminder, now time.Time) {
	// Re-read before dispatching: a completion that raced the scan suppresses
	// the notification instead of delivering it.
	fresh, err := s.store.Get(ctx, r.ID)
	if err != nil {
		logger.Error(ctx, "Notification pre-dispatch read failed", "error", err, "reminder_id", r.ID)
		return
	}
	if fresh == nil || fresh.IsCompleted || fresh.NotificationSent {
		logger.Debug(ctx, "Notification suppressed, reminder state moved on", "reminder_id", r.ID)
		return
	}
	n := models.Notification{
		ReminderID: fresh.ID,
		UserID:     fresh.UserID,
		Title:      fresh.Title,
		Body:       fresh.Description,
		Date:       fresh.Date,
		Time:       fresh.Time,
		Priority:   fresh.Priority,
		SentAt:     now,
	}
	if err := s.transport.Dispatch(ctx, n); err != nil {
		// Unconfirmed dispatch: leave notificationSent untouched so the next
		// scan retries.
		logger.Error(ctx, "Notification dispatch failed", "error", err, "reminder_id", r.ID)
		return
	}
	acked, err := s.store.AckNotified(ctx, r.ID, now)
	if err != nil {
		logger.Error(ctx, "Notification ack failed", "error", err, "reminder_id", r.ID)
		return
	}
	if !acked {
		// Completed or acknowledged concurrently; treat as stale.
		logger.Debug(ctx, "Notification ack skipped, reminder state moved on", "reminder_id", r.ID)
		return
	}
	logger.Debug(ctx, "Notification dispatched", "reminder_id", r.ID, "user_id", r.UserID)
}
