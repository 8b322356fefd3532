package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindly/internal/models"
)

func pending(id, date, clock string) models.Reminder {
	return models.Reminder{
		ID:       id,
		UserID:   "user-1",
		Title:    "title " + id,
		Date:     date,
		Time:     clock,
		Priority: models.PriorityMedium,
		Category: models.CategoryPersonal,
	}
}

func TestDueFiltersAndOrders(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)

	completed := pending("a", "2024-06-01", "08:00")
	completed.IsCompleted = true
	notified := pending("b", "2024-06-01", "08:00")
	notified.NotificationSent = true
	future := pending("c", "2024-06-01", "09:02")
	malformed := pending("d", "2024-02-31", "08:00")

	reminders := []models.Reminder{
		pending("late", "2024-06-01", "09:00"),
		pending("earlier", "2024-05-31", "22:00"),
		completed, notified, future, malformed,
		pending("tie-b", "2024-06-01", "08:30"),
		pending("tie-a", "2024-06-01", "08:30"),
	}

	due := Due(now, reminders)
	ids := make([]string, len(due))
	for i, r := range due {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"earlier", "tie-a", "tie-b", "late"}, ids)
}

func TestDueIncludesExactInstant(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	due := Due(now, []models.Reminder{pending("x", "2024-06-01", "09:00")})
	require.Len(t, due, 1)
}

func TestDueIsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	reminders := []models.Reminder{
		pending("b", "2024-06-01", "09:00"),
		pending("a", "2024-06-01", "09:00"),
		pending("c", "2024-06-01", "08:00"),
	}
	first := Due(now, reminders)
	second := Due(now, reminders)
	assert.Equal(t, first, second)
}

// fakeStore is an in-memory scheduler.Store with the same conditional
// acknowledgement semantics as the Postgres repository.
type fakeStore struct {
	mu        sync.Mutex
	reminders map[string]*models.Reminder
	onGet     func(id string) // invoked before Get reads, to stage races
}

func newFakeStore(rs ...models.Reminder) *fakeStore {
	s := &fakeStore{reminders: make(map[string]*models.Reminder)}
	for _, r := range rs {
		cp := r
		s.reminders[r.ID] = &cp
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id string) (*models.Reminder, error) {
	if s.onGet != nil {
		s.onGet(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) ListPending(ctx context.Context) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, r := range s.reminders {
		if !r.IsCompleted && !r.NotificationSent {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) AckNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok || r.IsCompleted || r.NotificationSent {
		return false, nil
	}
	r.NotificationSent = true
	r.UpdatedAt = now
	return true, nil
}

func (s *fakeStore) complete(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reminders[id]
	r.IsCompleted = true
	r.CompletedAt = &now
}

type fakeTransport struct {
	mu         sync.Mutex
	dispatched []models.Notification
	fail       bool
}

func (t *fakeTransport) Dispatch(ctx context.Context, n models.Notification) error {
	if t.fail {
		return errors.New("gateway unavailable")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatched = append(t.dispatched, n)
	return nil
}

func (t *fakeTransport) sent() []models.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Notification(nil), t.dispatched...)
}

func TestScanDispatchesAndAcks(t *testing.T) {
	store := newFakeStore(pending("r1", "2024-06-01", "09:00"))
	transport := &fakeTransport{}
	s := New(store, transport, time.Minute, time.UTC)

	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)
	require.NoError(t, s.Scan(context.Background(), now))

	sent := transport.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "r1", sent[0].ReminderID)
	assert.Equal(t, "title r1", sent[0].Title)

	// A later scan must not re-emit the acknowledged occurrence.
	require.NoError(t, s.Scan(context.Background(), now.Add(4*time.Minute)))
	assert.Len(t, transport.sent(), 1)
}

func TestScanRetriesAfterFailedDispatch(t *testing.T) {
	store := newFakeStore(pending("r1", "2024-06-01", "09:00"))
	transport := &fakeTransport{fail: true}
	s := New(store, transport, time.Minute, time.UTC)

	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)
	require.NoError(t, s.Scan(context.Background(), now))
	assert.Empty(t, transport.sent())

	// Dispatch failed, so the reminder must still be pending for the retry.
	transport.fail = false
	require.NoError(t, s.Scan(context.Background(), now.Add(time.Minute)))
	assert.Len(t, transport.sent(), 1)
}

func TestScanConcurrentCompletionSuppressesAck(t *testing.T) {
	store := newFakeStore(pending("r1", "2024-06-01", "09:00"))
	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)

	// Complete the reminder after the scan snapshot but before the dispatch:
	// the pre-dispatch re-read must suppress the notification entirely.
	transport := &fakeTransport{}
	store.onGet = func(id string) {
		store.onGet = nil
		store.complete(id, now)
	}
	s := New(store, transport, time.Minute, time.UTC)
	require.NoError(t, s.Scan(context.Background(), now))

	assert.Empty(t, transport.sent(), "completion takes precedence over the dispatch")
	r := store.reminders["r1"]
	assert.True(t, r.IsCompleted)
	assert.False(t, r.NotificationSent)
}

func TestScanIsolatesPerReminderFaults(t *testing.T) {
	store := newFakeStore(
		pending("bad", "2024-06-01", "08:00"),
		pending("good", "2024-06-01", "09:00"),
	)
	store.reminders["bad"].Date = "not-a-date"
	transport := &fakeTransport{}
	s := New(store, transport, time.Minute, time.UTC)

	now := time.Date(2024, 6, 1, 9, 1, 0, 0, time.UTC)
	require.NoError(t, s.Scan(context.Background(), now))

	sent := transport.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "good", sent[0].ReminderID)
}
