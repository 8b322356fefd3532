package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/pkg/logger"
)

const reminderColumns = `id, user_id, title, description, date, time, priority, category,
	is_completed, is_recurring, recurrence_pattern, notification_sent,
	completed_at, next_occurrence, created_at, updated_at`

func scanReminder(row interface{ Scan(...interface{}) error }) (*models.Reminder, error) {
	var r models.Reminder
	var completedAt, nextOccurrence sql.NullTime
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.Date, &r.Time,
		&r.Priority, &r.Category, &r.IsCompleted, &r.IsRecurring, &r.RecurrencePattern,
		&r.NotificationSent, &completedAt, &nextOccurrence, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if nextOccurrence.Valid {
		r.NextOccurrence = &nextOccurrence.Time
	}
	return &r, nil
}

// Get returns a reminder by ID, or nil when it does not exist.
func Get(ctx context.Context, id string) (*models.Reminder, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, sql.ErrConnDone
	}
	row := db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetOwned returns a reminder by ID scoped to its owner, or nil.
func GetOwned(ctx context.Context, id, userID string) (*models.Reminder, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, sql.ErrConnDone
	}
	row := db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND user_id = $2`, id, userID)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// Create inserts a new reminder.
func Create(ctx context.Context, r *models.Reminder) error {
	db := database.DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	var nextOccurrence interface{}
	if r.NextOccurrence != nil {
		nextOccurrence = *r.NextOccurrence
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, title, description, date, time, priority, category,
		 is_completed, is_recurring, recurrence_pattern, notification_sent, next_occurrence, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.UserID, r.Title, r.Description, r.Date, r.Time, r.Priority, r.Category,
		r.IsCompleted, r.IsRecurring, r.RecurrencePattern, r.NotificationSent, nextOccurrence,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository Create failed", "error", err)
		return err
	}
	return nil
}

// Update applies a partial update; empty string fields are left unchanged.
// Recurrence fields are only touched when isRecurring is provided, so the
// pattern/flag pair always changes together.
func Update(ctx context.Context, cmd *models.ReminderCommand) error {
	db := database.DB(ctx)
	if db == nil {
		return sql.ErrConnDone
	}
	var isRecurring interface{}
	var pattern interface{}
	if cmd.IsRecurring != nil {
		isRecurring = *cmd.IsRecurring
		pattern = string(models.RecurrenceNone)
		if cmd.RecurrencePattern != nil {
			pattern = string(*cmd.RecurrencePattern)
		}
	}
	_, err := db.ExecContext(ctx,
		`UPDATE reminders SET
		 title = COALESCE(NULLIF($1,''), title),
		 description = COALESCE(NULLIF($2,''), description),
		 date = COALESCE(NULLIF($3,''), date),
		 time = COALESCE(NULLIF($4,''), time),
		 priority = COALESCE(NULLIF($5,''), priority),
		 category = COALESCE(NULLIF($6,''), category),
		 is_recurring = COALESCE($7, is_recurring),
		 recurrence_pattern = COALESCE($8, recurrence_pattern),
		 updated_at = $9
		 WHERE id = $10 AND user_id = $11`,
		cmd.Title, cmd.Description, cmd.Date, cmd.Time, string(cmd.Priority), string(cmd.Category),
		isRecurring, pattern, time.Now(), cmd.ID, cmd.UserID)
	if err != nil {
		logger.Error(ctx, "Repository Update failed", "error", err, "id", cmd.ID)
		return err
	}
	return nil
}

// Delete removes a reminder. Returns whether a row was deleted and whether it
// had been completed (for the stats decrement hook).
func Delete(ctx context.Context, id, userID string) (found, wasCompleted bool, err error) {
	db := database.DB(ctx)
	if db == nil {
		return false, false, sql.ErrConnDone
	}
	err = db.QueryRowContext(ctx,
		`DELETE FROM reminders WHERE id = $1 AND user_id = $2 RETURNING is_completed`,
		id, userID).Scan(&wasCompleted)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "id", id)
		return false, false, err
	}
	return true, wasCompleted, nil
}

// ListByOwner returns a user's reminders ordered by occurrence, with the
// optional category/completed/date filters of the list endpoint.
func ListByOwner(ctx context.Context, userID, category string, completed *bool, date string) ([]models.Reminder, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, sql.ErrConnDone
	}
	q := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = $1`
	args := []interface{}{userID}
	if category != "" && category != "all" {
		args = append(args, category)
		q += ` AND category = $2`
	}
	if completed != nil {
		args = append(args, *completed)
		q += ` AND is_completed = $` + strconv.Itoa(len(args))
	}
	if date != "" {
		args = append(args, date)
		q += ` AND date = $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY date, time, id`
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		logger.Error(ctx, "Repository ListByOwner failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var out []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan reminder failed", "error", err)
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListPending returns every reminder that is neither completed nor notified,
// across all users, for the notification scan.
func ListPending(ctx context.Context) ([]models.Reminder, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, sql.ErrConnDone
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE NOT is_completed AND NOT notification_sent
		 ORDER BY date, time, id`)
	if err != nil {
		logger.Error(ctx, "Repository ListPending failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var out []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan reminder failed", "error", err)
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// StoreCompletion persists the result of a MarkCompleted transition, guarded
// on the row still holding the occurrence the transition was computed from
// (prevDate/prevTime) and still being pending. Returns false when a
// concurrent completion got there first; rollovers change the occurrence, so
// the guard also catches a raced double-complete of a recurring reminder.
func StoreCompletion(ctx context.Context, r *models.Reminder, prevDate, prevTime string) (bool, error) {
	db := database.DB(ctx)
	if db == nil {
		return false, sql.ErrConnDone
	}
	var completedAt, nextOccurrence interface{}
	if r.CompletedAt != nil {
		completedAt = *r.CompletedAt
	}
	if r.NextOccurrence != nil {
		nextOccurrence = *r.NextOccurrence
	}
	res, err := db.ExecContext(ctx,
		`UPDATE reminders SET
		 date = $1, time = $2, is_completed = $3, completed_at = $4,
		 notification_sent = $5, next_occurrence = $6, updated_at = $7
		 WHERE id = $8 AND date = $9 AND time = $10 AND NOT is_completed`,
		r.Date, r.Time, r.IsCompleted, completedAt, r.NotificationSent, nextOccurrence,
		r.UpdatedAt, r.ID, prevDate, prevTime)
	if err != nil {
		logger.Error(ctx, "Repository StoreCompletion failed", "error", err, "id", r.ID)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AckNotified flips notification_sent for the current occurrence, but only
// while the reminder is still pending and unsent. The guard is what makes the
// scan's dispatch at-most-once and lets a concurrent completion win.
func AckNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	db := database.DB(ctx)
	if db == nil {
		return false, sql.ErrConnDone
	}
	res, err := db.ExecContext(ctx,
		`UPDATE reminders SET notification_sent = TRUE, updated_at = $1
		 WHERE id = $2 AND NOT is_completed AND NOT notification_sent`,
		now, id)
	if err != nil {
		logger.Error(ctx, "Repository AckNotified failed", "error", err, "id", id)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Store adapts the package functions to the scheduler's persistence contract.
type Store struct{}

func (Store) Get(ctx context.Context, id string) (*models.Reminder, error) {
	return Get(ctx, id)
}

func (Store) ListPending(ctx context.Context) ([]models.Reminder, error) {
	return ListPending(ctx)
}

func (Store) AckNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	return AckNotified(ctx, id, now)
}
