package database

import (
	"context"
	"database/sql"

	"remindly/pkg/logger"
)

// MigrateOrCreateSchema creates the reminders and users tables and their
// indexes if they do not exist. Idempotent; called at startup.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reminders (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			title              TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			date               TEXT NOT NULL,
			time               TEXT NOT NULL,
			priority           TEXT NOT NULL DEFAULT 'medium',
			category           TEXT NOT NULL DEFAULT 'personal',
			is_completed       BOOLEAN NOT NULL DEFAULT FALSE,
			is_recurring       BOOLEAN NOT NULL DEFAULT FALSE,
			recurrence_pattern TEXT NOT NULL DEFAULT '',
			notification_sent  BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at       TIMESTAMPTZ,
			next_occurrence    TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user_date ON reminders (user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user_completed ON reminders (user_id, is_completed)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user_category ON reminders (user_id, category)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (date, time) WHERE NOT is_completed AND NOT notification_sent`,
		`CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			total_reminders      BIGINT NOT NULL DEFAULT 0,
			completed_reminders  BIGINT NOT NULL DEFAULT 0,
			streak_days          BIGINT NOT NULL DEFAULT 0,
			last_completion_date DATE,
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error(ctx, "Schema statement failed", "error", err)
			return err
		}
	}
	logger.Info(ctx, "Schema ensured")
	return nil
}
