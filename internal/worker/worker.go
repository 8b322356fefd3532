package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"remindly/internal/cache"
	"remindly/internal/config"
	"remindly/internal/lifecycle"
	"remindly/internal/models"
	"remindly/internal/queue"
	"remindly/internal/repository"
	"remindly/internal/stats"
	"remindly/pkg/logger"

	"github.com/segmentio/kafka-go"
)

var aggregator = stats.New(repository.Counters{})

// Run starts the Kafka consumer: reads reminder commands, applies them
// through the state machine, updates user counters, invalidates the cache.
// One consumer per process; scale by running more replicas (consumer group
// shares partitions).
func Run(ctx context.Context) {
	cfg := config.Get()
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  queue.Brokers(),
		Topic:    queue.CommandTopic(),
		GroupID:  "reminder-workers",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Kafka consumer started", "topic", queue.CommandTopic())
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := handleMessage(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

func handleMessage(ctx context.Context, payload []byte) error {
	var cmd models.ReminderCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	switch cmd.Action {
	case "create":
		if err := applyCreate(ctx, &cmd); err != nil {
			return err
		}
	case "update":
		if err := repository.Update(ctx, &cmd); err != nil {
			return err
		}
	case "delete":
		if err := applyDelete(ctx, &cmd); err != nil {
			return err
		}
	case "complete":
		if err := applyComplete(ctx, &cmd); err != nil {
			return err
		}
	default:
		return nil
	}
	cache.Invalidate(ctx, cmd.UserID)
	return nil
}

func applyCreate(ctx context.Context, cmd *models.ReminderCommand) error {
	r := &models.Reminder{
		ID:          cmd.ID,
		UserID:      cmd.UserID,
		Title:       cmd.Title,
		Description: cmd.Description,
		Date:        cmd.Date,
		Time:        cmd.Time,
		Priority:    cmd.Priority,
		Category:    cmd.Category,
	}
	if cmd.IsRecurring != nil {
		r.IsRecurring = *cmd.IsRecurring
	}
	if cmd.RecurrencePattern != nil {
		r.RecurrencePattern = *cmd.RecurrencePattern
	}
	if err := repository.Create(ctx, r); err != nil {
		return err
	}
	return aggregator.OnCreated(ctx, r.UserID)
}

func applyDelete(ctx context.Context, cmd *models.ReminderCommand) error {
	found, wasCompleted, err := repository.Delete(ctx, cmd.ID, cmd.UserID)
	if err != nil {
		return err
	}
	if !found {
		logger.Debug(ctx, "Delete for unknown reminder", "id", cmd.ID)
		return nil
	}
	return aggregator.OnDeleted(ctx, cmd.UserID, wasCompleted)
}

// applyComplete runs the complete (and rollover) transition. The completion
// event reaches the aggregator exactly once per applied transition; repeated
// or raced completions degrade to logged no-ops.
func applyComplete(ctx context.Context, cmd *models.ReminderCommand) error {
	r, err := repository.GetOwned(ctx, cmd.ID, cmd.UserID)
	if err != nil {
		return err
	}
	if r == nil {
		logger.Debug(ctx, "Complete for unknown reminder", "id", cmd.ID)
		return nil
	}
	now := cmd.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}
	prevDate, prevTime := r.Date, r.Time
	outcome, err := lifecycle.MarkCompleted(r, now)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			logger.Debug(ctx, "Reminder already completed", "id", r.ID)
			return nil
		case errors.Is(err, lifecycle.ErrInvalidRecurrenceState):
			// Left untouched and surfaced for external correction; advancing
			// it here would loop the record forever.
			logger.Warn(ctx, "Reminder has invalid recurrence state", "id", r.ID)
			return nil
		default:
			return err
		}
	}
	applied, err := repository.StoreCompletion(ctx, r, prevDate, prevTime)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug(ctx, "Completion raced, row already completed", "id", r.ID)
		return nil
	}
	return aggregator.OnCompleted(ctx, r.UserID, outcome == lifecycle.RolledOver, now)
}
