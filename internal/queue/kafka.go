package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"remindly/internal/config"
	"remindly/internal/models"
	"remindly/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopics creates the command and notification topics with configured
// partitions (idempotent). Call at startup; if it fails (e.g. no broker or
// topics exist), the app still runs.
func EnsureTopics(ctx context.Context) {
	cfg := config.Get()
	if len(cfg.KafkaBrokers) == 0 {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(
		kafka.TopicConfig{
			Topic:             cfg.CommandTopic,
			NumPartitions:     cfg.KafkaPartitions,
			ReplicationFactor: 1,
		},
		kafka.TopicConfig{
			Topic:             cfg.NotifyTopic,
			NumPartitions:     cfg.KafkaPartitions,
			ReplicationFactor: 1,
		},
	)
	if err != nil {
		logger.Debug(ctx, "Kafka create topics failed (topics may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topics ensured",
		"commands", cfg.CommandTopic, "notifications", cfg.NotifyTopic,
		"partitions", cfg.KafkaPartitions)
}

var (
	cmdWriter    *kafka.Writer
	cmdOnce      sync.Once
	notifyWriter *kafka.Writer
	notifyOnce   sync.Once
)

// Producer returns the global Kafka writer for reminder commands
// (initialized on first use).
func Producer(ctx context.Context) *kafka.Writer {
	cmdOnce.Do(func() {
		cfg := config.Get()
		cmdWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.CommandTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 0,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		}
		logger.Info(ctx, "Kafka command producer initialized", "topic", cfg.CommandTopic, "brokers", cfg.KafkaBrokers)
	})
	return cmdWriter
}

// PublishCommand publishes a reminder command. Non-blocking with the async writer.
func PublishCommand(ctx context.Context, cmd *models.ReminderCommand) error {
	w := Producer(ctx)
	if w == nil {
		return nil
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	// Keying by reminder keeps commands for one record on one partition,
	// so a single consumer applies them in order.
	key := []byte(cmd.UserID + ":" + cmd.ID)
	return w.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: payload,
	})
}

// notifyProducer returns the writer for the notification topic. Unlike the
// command producer it is synchronous: WriteMessages returning nil is the
// delivery confirmation the at-most-once acknowledgement depends on.
func notifyProducer(ctx context.Context) *kafka.Writer {
	notifyOnce.Do(func() {
		cfg := config.Get()
		notifyWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.NotifyTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
		logger.Info(ctx, "Kafka notification producer initialized", "topic", cfg.NotifyTopic)
	})
	return notifyWriter
}

// Transport publishes notifications for the external push gateway. It
// satisfies the scheduler's dispatch contract.
type Transport struct{}

func (Transport) Dispatch(ctx context.Context, n models.Notification) error {
	w := notifyProducer(ctx)
	if w == nil {
		return fmt.Errorf("queue: notification producer unavailable")
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.UserID),
		Value: payload,
	})
}

// CommandTopic returns the reminder commands topic name.
func CommandTopic() string {
	return config.Get().CommandTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
