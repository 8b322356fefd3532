package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"remindly/internal/cache"
	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/internal/queue"
	"remindly/internal/repository"
	"remindly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

var listGroup singleflight.Group

// reminderBody is the JSON payload for create/update requests.
type reminderBody struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	Priority          string `json:"priority"`
	Category          string `json:"category"`
	IsRecurring       *bool  `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern"`
}

// normalizePattern maps the accepted wire values onto the stored pattern.
// "none" and "" both mean non-recurring.
func normalizePattern(s string) (models.RecurrencePattern, bool) {
	if s == "none" {
		s = ""
	}
	p := models.RecurrencePattern(s)
	return p, p.Valid()
}

func validCivil(date, clock string) bool {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return false
	}
	if _, err := time.Parse(models.TimeLayout, clock); err != nil {
		return false
	}
	return true
}

// validateBody enforces the boundary invariants so the engine never sees a
// malformed record. forCreate requires the mandatory fields; updates may omit
// anything.
func validateBody(b *reminderBody, forCreate bool) (models.RecurrencePattern, string) {
	if forCreate && b.Title == "" {
		return "", "title is required"
	}
	if len(b.Title) > maxTitleLen {
		return "", "title too long"
	}
	if len(b.Description) > maxDescriptionLen {
		return "", "description too long"
	}
	if forCreate && !validCivil(b.Date, b.Time) {
		return "", "date (YYYY-MM-DD) and time (HH:MM) are required"
	}
	if !forCreate {
		if b.Date != "" {
			if _, err := time.Parse(models.DateLayout, b.Date); err != nil {
				return "", "invalid date"
			}
		}
		if b.Time != "" {
			if _, err := time.Parse(models.TimeLayout, b.Time); err != nil {
				return "", "invalid time"
			}
		}
	}
	if b.Priority != "" && !models.Priority(b.Priority).Valid() {
		return "", "invalid priority"
	}
	if b.Category != "" && !models.Category(b.Category).Valid() {
		return "", "invalid category"
	}
	pattern, ok := normalizePattern(b.RecurrencePattern)
	if !ok {
		return "", "invalid recurrence pattern"
	}
	// Invariant at the boundary: pattern != none exactly when is_recurring.
	if b.IsRecurring != nil {
		if *b.IsRecurring && pattern == models.RecurrenceNone {
			return "", "recurring reminders need a recurrence pattern"
		}
		if !*b.IsRecurring && pattern != models.RecurrenceNone {
			return "", "recurrence pattern requires is_recurring"
		}
	} else if pattern != models.RecurrenceNone {
		return "", "recurrence pattern requires is_recurring"
	}
	return pattern, ""
}

func currentUser(c *gin.Context) string {
	v, _ := c.Get("user")
	uid, _ := v.(string)
	return uid
}

// GetReminders returns the caller's reminders. The unfiltered list is served
// cache-first as raw bytes; filtered queries go to the database.
func GetReminders(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	category := c.Query("category")
	date := c.Query("date")
	var completed *bool
	if v := c.Query("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid completed filter"})
			return
		}
		completed = &b
	}

	filtered := (category != "" && category != "all") || completed != nil || date != ""
	if filtered {
		reminders, err := repository.ListByOwner(ctx, uid, category, completed, date)
		if err != nil {
			logger.Error(ctx, "GetReminders repository failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reminders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(reminders), "reminders": reminders})
		return
	}

	if b, ok := cache.GetRawList(ctx, uid); ok {
		c.Data(http.StatusOK, "application/json", b)
		return
	}
	v, err, _ := listGroup.Do(uid, func() (interface{}, error) {
		reminders, err := repository.ListByOwner(context.Background(), uid, "", nil, "")
		if err != nil {
			return nil, err
		}
		return json.Marshal(gin.H{"count": len(reminders), "reminders": reminders})
	})
	if err != nil {
		if ctx.Err() != nil || isContextErr(err) {
			return
		}
		logger.Error(ctx, "GetReminders repository failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reminders"})
		return
	}
	b := v.([]byte)
	c.Data(http.StatusOK, "application/json", b)
	go cache.SetRawListAsync(uid, b)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// CreateReminder validates the body, publishes a create command, returns 202.
func CreateReminder(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var body reminderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	pattern, problem := validateBody(&body, true)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	if body.Priority == "" {
		body.Priority = string(models.PriorityMedium)
	}
	if body.Category == "" {
		body.Category = string(models.CategoryPersonal)
	}
	recurring := body.IsRecurring != nil && *body.IsRecurring

	id := uuid.New().String()
	cmd := &models.ReminderCommand{
		Action:            "create",
		ID:                id,
		UserID:            uid,
		Title:             body.Title,
		Description:       body.Description,
		Date:              body.Date,
		Time:              body.Time,
		Priority:          models.Priority(body.Priority),
		Category:          models.Category(body.Category),
		IsRecurring:       &recurring,
		RecurrencePattern: &pattern,
		RequestedAt:       time.Now(),
	}
	if err := queue.PublishCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "CreateReminder publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queueing failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "message": "Reminder creation queued"})
}

// UpdateReminder publishes a partial update command, returns 202.
func UpdateReminder(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reminder id"})
		return
	}
	var body reminderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	pattern, problem := validateBody(&body, false)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	cmd := &models.ReminderCommand{
		Action:      "update",
		ID:          id,
		UserID:      uid,
		Title:       body.Title,
		Description: body.Description,
		Date:        body.Date,
		Time:        body.Time,
		Priority:    models.Priority(body.Priority),
		Category:    models.Category(body.Category),
		IsRecurring: body.IsRecurring,
		RequestedAt: time.Now(),
	}
	if body.IsRecurring != nil {
		cmd.RecurrencePattern = &pattern
	}
	if err := queue.PublishCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "UpdateReminder publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queueing failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "message": "Reminder update queued"})
}

// DeleteReminder publishes a delete command, returns 202.
func DeleteReminder(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reminder id"})
		return
	}
	cmd := &models.ReminderCommand{
		Action:      "delete",
		ID:          id,
		UserID:      uid,
		RequestedAt: time.Now(),
	}
	if err := queue.PublishCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "DeleteReminder publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queueing failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "message": "Reminder deletion queued"})
}

// CompleteReminder publishes a complete command, returns 202. Completion is
// one-way; completing an already-completed reminder is absorbed by the worker
// as a no-op.
func CompleteReminder(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing reminder id"})
		return
	}
	cmd := &models.ReminderCommand{
		Action:      "complete",
		ID:          id,
		UserID:      uid,
		RequestedAt: time.Now(),
	}
	if err := queue.PublishCommand(ctx, cmd); err != nil {
		logger.Error(ctx, "CompleteReminder publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request queueing failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "message": "Reminder completion queued"})
}

// GetStats returns the caller's aggregate counters and completion rate.
func GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := currentUser(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	s, err := repository.GetStats(ctx, uid)
	if err != nil {
		logger.Error(ctx, "GetStats repository failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_reminders":     s.TotalReminders,
		"completed_reminders": s.CompletedReminders,
		"streak_days":         s.StreakDays,
		"completion_rate":     s.CompletionRate(),
	})
}

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if DB and Redis are reachable. Used by K8s readiness probes.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if cache.Client(ctx) == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
		return
	}
	db := database.DB(ctx)
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	if err := db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	c.String(http.StatusOK, "OK")
}
