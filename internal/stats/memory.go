package stats

import (
	"context"
	"sync"
	"time"

	"remindly/internal/models"
)

// MemoryStore is an in-process CounterStore. It backs tests and single-node
// deployments that run without Postgres.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*models.UserStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.UserStats)}
}

func (m *MemoryStore) get(userID string) *models.UserStats {
	s, ok := m.users[userID]
	if !ok {
		s = &models.UserStats{UserID: userID}
		m.users[userID] = s
	}
	return s
}

func (m *MemoryStore) IncrementCreated(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(userID)
	s.TotalReminders++
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ApplyCompletion(ctx context.Context, userID, day string, countStreak bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(userID)
	s.CompletedReminders++
	if countStreak {
		s.StreakDays = AdvanceStreak(s.LastCompletionDate, day, s.StreakDays)
		if s.LastCompletionDate == "" || day > s.LastCompletionDate {
			s.LastCompletionDate = day
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ApplyDeletion(ctx context.Context, userID string, wasCompleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(userID)
	if s.TotalReminders > 0 {
		s.TotalReminders--
	}
	if wasCompleted && s.CompletedReminders > 0 {
		s.CompletedReminders--
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of the user's counters.
func (m *MemoryStore) Snapshot(userID string) models.UserStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.get(userID)
}
