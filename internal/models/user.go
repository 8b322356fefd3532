package models

import "time"

// UserStats holds a user's aggregate reminder counters. The counters are
// mutated only through the stats aggregator, never recomputed by scanning
// the reminder set at read time.
type UserStats struct {
	UserID             string    `json:"user_id"`
	TotalReminders     int64     `json:"total_reminders"`
	CompletedReminders int64     `json:"completed_reminders"`
	StreakDays         int64     `json:"streak_days"`
	LastCompletionDate string    `json:"last_completion_date,omitempty"` // civil YYYY-MM-DD
	UpdatedAt          time.Time `json:"updated_at"`
}

// CompletionRate returns the percentage of completed reminders, 0 when the
// user has none.
func (s *UserStats) CompletionRate() int {
	if s.TotalReminders == 0 {
		return 0
	}
	rate := float64(s.CompletedReminders) / float64(s.TotalReminders) * 100
	return int(rate + 0.5)
}
