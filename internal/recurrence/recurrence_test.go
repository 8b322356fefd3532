package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindly/internal/models"
)

func TestNextDaily(t *testing.T) {
	date, clock, err := Next("2024-06-15", "09:30", models.RecurrenceDaily)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-16", date)
	assert.Equal(t, "09:30", clock)
}

func TestNextDailyAcrossMonthEnd(t *testing.T) {
	date, clock, err := Next("2024-01-31", "23:45", models.RecurrenceDaily)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", date)
	assert.Equal(t, "23:45", clock)
}

func TestNextWeekly(t *testing.T) {
	date, clock, err := Next("2024-06-15", "07:00", models.RecurrenceWeekly)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-22", date)
	assert.Equal(t, "07:00", clock)
}

func TestNextWeeklyAcrossYearEnd(t *testing.T) {
	date, _, err := Next("2024-12-28", "12:00", models.RecurrenceWeekly)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-04", date)
}

func TestNextMonthly(t *testing.T) {
	date, clock, err := Next("2024-06-15", "09:00", models.RecurrenceMonthly)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-15", date)
	assert.Equal(t, "09:00", clock)
}

func TestNextMonthlyClampsToShorterMonth(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"jan 31 to feb 29 leap", "2024-01-31", "2024-02-29"},
		{"jan 31 to feb 28 non-leap", "2025-01-31", "2025-02-28"},
		{"mar 31 to apr 30", "2024-03-31", "2024-04-30"},
		{"may 31 to jun 30", "2024-05-31", "2024-06-30"},
		{"dec 31 to jan 31 next year", "2024-12-31", "2025-01-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, clock, err := Next(tc.in, "09:00", models.RecurrenceMonthly)
			require.NoError(t, err)
			assert.Equal(t, tc.want, date)
			assert.Equal(t, "09:00", clock)
		})
	}
}

func TestNextMonthlyKeepsDayWhenValid(t *testing.T) {
	// Clamping never sticks: Feb 28 advances to Mar 28, not Mar 31.
	date, _, err := Next("2025-02-28", "09:00", models.RecurrenceMonthly)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-28", date)
}

func TestNextNoneRejected(t *testing.T) {
	_, _, err := Next("2024-06-15", "09:00", models.RecurrenceNone)
	assert.ErrorIs(t, err, ErrNoRecurrence)
}

func TestNextUnknownPatternRejected(t *testing.T) {
	_, _, err := Next("2024-06-15", "09:00", models.RecurrencePattern("yearly"))
	assert.Error(t, err)
}

func TestNextInvalidAnchorRejected(t *testing.T) {
	_, _, err := Next("2024-02-31", "09:00", models.RecurrenceDaily)
	assert.Error(t, err)

	_, _, err = Next("2024-06-15", "25:00", models.RecurrenceDaily)
	assert.Error(t, err)
}

func TestNextOverflow(t *testing.T) {
	_, _, err := Next("9999-12-31", "09:00", models.RecurrenceDaily)
	assert.ErrorIs(t, err, ErrOverflow)

	_, _, err = Next("9999-12-15", "09:00", models.RecurrenceMonthly)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestNextIsDeterministic(t *testing.T) {
	d1, c1, err := Next("2024-03-31", "18:15", models.RecurrenceMonthly)
	require.NoError(t, err)
	d2, c2, err := Next("2024-03-31", "18:15", models.RecurrenceMonthly)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, c1, c2)
}
