package models

import (
	"fmt"
	"time"
)

// Civil date/time layouts used throughout the engine. Occurrences are stored
// as local civil values, not UTC instants; they are resolved against a
// location only when compared to "now".
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Priority of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a recognized priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Category of a reminder.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// RecurrencePattern describes how a recurring reminder advances.
// The zero value means the reminder does not recur.
type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = ""
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// Valid reports whether rp is a recognized pattern (including none).
func (rp RecurrencePattern) Valid() bool {
	switch rp {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Reminder is a single reminder record. Date and Time hold the civil
// date/time of the current (next or only) occurrence.
type Reminder struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Date              string            `json:"date"`
	Time              string            `json:"time"`
	Priority          Priority          `json:"priority"`
	Category          Category          `json:"category"`
	IsCompleted       bool              `json:"is_completed"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty"`
	NotificationSent  bool              `json:"notification_sent"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	NextOccurrence    *time.Time        `json:"next_occurrence,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// OccurrenceAt resolves the reminder's civil date+time in the given location.
func (r *Reminder) OccurrenceAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder %s has invalid occurrence %q %q: %w", r.ID, r.Date, r.Time, err)
	}
	return t, nil
}

// ReminderCommand is the message payload for Kafka (create/update/delete/complete).
// For updates, empty string fields mean "leave unchanged".
type ReminderCommand struct {
	Action            string             `json:"action"` // create, update, delete, complete
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	Title             string             `json:"title,omitempty"`
	Description       string             `json:"description,omitempty"`
	Date              string             `json:"date,omitempty"`
	Time              string             `json:"time,omitempty"`
	Priority          Priority           `json:"priority,omitempty"`
	Category          Category           `json:"category,omitempty"`
	IsRecurring       *bool              `json:"is_recurring,omitempty"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern,omitempty"`
	RequestedAt       time.Time          `json:"requested_at"`
}

// Notification is the dispatch payload published for the push gateway.
type Notification struct {
	ReminderID string    `json:"reminder_id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Priority   Priority  `json:"priority"`
	SentAt     time.Time `json:"sent_at"`
}
