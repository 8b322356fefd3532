package repository

import (
	"context"
	"database/sql"

	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/pkg/logger"
)

// Counters is the Postgres stats.CounterStore. Every command is a single
// upsert so concurrent reminders for the same user never lose updates.
type Counters struct{}

func (Counters) IncrementCreated(ctx context.Context, userID string) error {
	db := database.DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, total_reminders) VALUES ($1, 1)
		 ON CONFLICT (id) DO UPDATE SET
		 total_reminders = users.total_reminders + 1, updated_at = NOW()`,
		userID)
	if err != nil {
		logger.Error(ctx, "Counters IncrementCreated failed", "error", err, "user_id", userID)
	}
	return err
}

func (Counters) ApplyCompletion(ctx context.Context, userID, day string, countStreak bool) error {
	db := database.DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	var err error
	if countStreak {
		// Same streak rule as stats.AdvanceStreak: consecutive day extends,
		// gap resets, same or earlier day leaves the streak alone.
		_, err = db.ExecContext(ctx,
			`INSERT INTO users (id, completed_reminders, streak_days, last_completion_date)
			 VALUES ($1, 1, 1, $2::date)
			 ON CONFLICT (id) DO UPDATE SET
			 completed_reminders = users.completed_reminders + 1,
			 streak_days = CASE
				WHEN users.last_completion_date = $2::date THEN users.streak_days
				WHEN users.last_completion_date = $2::date - 1 THEN users.streak_days + 1
				WHEN users.last_completion_date > $2::date THEN users.streak_days
				ELSE 1 END,
			 last_completion_date = GREATEST(COALESCE(users.last_completion_date, $2::date), $2::date),
			 updated_at = NOW()`,
			userID, day)
	} else {
		_, err = db.ExecContext(ctx,
			`INSERT INTO users (id, completed_reminders) VALUES ($1, 1)
			 ON CONFLICT (id) DO UPDATE SET
			 completed_reminders = users.completed_reminders + 1, updated_at = NOW()`,
			userID)
	}
	if err != nil {
		logger.Error(ctx, "Counters ApplyCompletion failed", "error", err, "user_id", userID)
	}
	return err
}

func (Counters) ApplyDeletion(ctx context.Context, userID string, wasCompleted bool) error {
	db := database.DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	_, err := db.ExecContext(ctx,
		`UPDATE users SET
		 total_reminders = GREATEST(total_reminders - 1, 0),
		 completed_reminders = CASE WHEN $2 THEN GREATEST(completed_reminders - 1, 0)
			ELSE completed_reminders END,
		 updated_at = NOW()
		 WHERE id = $1`,
		userID, wasCompleted)
	if err != nil {
		logger.Error(ctx, "Counters ApplyDeletion failed", "error", err, "user_id", userID)
	}
	return err
}

// GetStats returns a user's counters; zero counters when the user has none yet.
func GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, sql.ErrConnDone
	}
	s := &models.UserStats{UserID: userID}
	var lastCompletion sql.NullTime
	err := db.QueryRowContext(ctx,
		`SELECT total_reminders, completed_reminders, streak_days, last_completion_date, updated_at
		 FROM users WHERE id = $1`, userID).
		Scan(&s.TotalReminders, &s.CompletedReminders, &s.StreakDays, &lastCompletion, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		logger.Error(ctx, "Repository GetStats failed", "error", err, "user_id", userID)
		return nil, err
	}
	if lastCompletion.Valid {
		s.LastCompletionDate = lastCompletion.Time.Format(models.DateLayout)
	}
	return s, nil
}
