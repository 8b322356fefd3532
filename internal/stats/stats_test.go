package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t.Add(10 * time.Hour)
}

func TestAdvanceStreak(t *testing.T) {
	cases := []struct {
		name    string
		last    string
		day     string
		current int64
		want    int64
	}{
		{"first completion", "", "2024-06-01", 0, 1},
		{"consecutive day", "2024-06-01", "2024-06-02", 3, 4},
		{"same day repeat", "2024-06-01", "2024-06-01", 3, 3},
		{"gap resets", "2024-06-01", "2024-06-05", 7, 1},
		{"earlier day ignored", "2024-06-05", "2024-06-03", 2, 2},
		{"across month end", "2024-06-30", "2024-07-01", 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AdvanceStreak(tc.last, tc.day, tc.current))
		})
	}
}

func TestOnCreated(t *testing.T) {
	store := NewMemoryStore()
	agg := New(store)
	ctx := context.Background()

	require.NoError(t, agg.OnCreated(ctx, "u1"))
	require.NoError(t, agg.OnCreated(ctx, "u1"))
	require.NoError(t, agg.OnCreated(ctx, "u2"))

	assert.EqualValues(t, 2, store.Snapshot("u1").TotalReminders)
	assert.EqualValues(t, 1, store.Snapshot("u2").TotalReminders)
}

func TestOnCompletedStreakProgression(t *testing.T) {
	store := NewMemoryStore()
	agg := New(store)
	ctx := context.Background()

	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-01")))
	assert.EqualValues(t, 1, store.Snapshot("u1").StreakDays)

	// Day after the last counted completion extends the streak.
	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-02")))
	s := store.Snapshot("u1")
	assert.EqualValues(t, 2, s.StreakDays)
	assert.EqualValues(t, 2, s.CompletedReminders)

	// Same day is a no-op for the streak, still counts as a completion.
	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-02")))
	s = store.Snapshot("u1")
	assert.EqualValues(t, 2, s.StreakDays)
	assert.EqualValues(t, 3, s.CompletedReminders)

	// A gap resets the streak to 1.
	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-05")))
	assert.EqualValues(t, 1, store.Snapshot("u1").StreakDays)
}

func TestOnCompletedRolloverSkipsStreak(t *testing.T) {
	store := NewMemoryStore()
	agg := New(store)
	ctx := context.Background()

	require.NoError(t, agg.OnCompleted(ctx, "u1", true, day("2024-06-01")))
	s := store.Snapshot("u1")
	assert.EqualValues(t, 1, s.CompletedReminders)
	assert.EqualValues(t, 0, s.StreakDays, "recurring rollovers do not count toward the streak")
	assert.Empty(t, s.LastCompletionDate)
}

func TestOnDeleted(t *testing.T) {
	store := NewMemoryStore()
	agg := New(store)
	ctx := context.Background()

	require.NoError(t, agg.OnCreated(ctx, "u1"))
	require.NoError(t, agg.OnCreated(ctx, "u1"))
	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-01")))

	require.NoError(t, agg.OnDeleted(ctx, "u1", true))
	s := store.Snapshot("u1")
	assert.EqualValues(t, 1, s.TotalReminders)
	assert.EqualValues(t, 0, s.CompletedReminders)

	// Deleting a pending reminder leaves completedReminders alone.
	require.NoError(t, agg.OnDeleted(ctx, "u1", false))
	s = store.Snapshot("u1")
	assert.EqualValues(t, 0, s.TotalReminders)
	assert.EqualValues(t, 0, s.CompletedReminders)
}

func TestCompletionRate(t *testing.T) {
	store := NewMemoryStore()
	agg := New(store)
	ctx := context.Background()

	s := store.Snapshot("u1")
	assert.Equal(t, 0, s.CompletionRate())

	for i := 0; i < 3; i++ {
		require.NoError(t, agg.OnCreated(ctx, "u1"))
	}
	require.NoError(t, agg.OnCompleted(ctx, "u1", false, day("2024-06-01")))
	s = store.Snapshot("u1")
	assert.Equal(t, 33, s.CompletionRate())
}
