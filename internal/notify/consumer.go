package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"studybuddy/internal/kafka"
)

// Consumer reads the notifications topic with manual commits
type Consumer struct {
	consumer  *ckafka.Consumer
	dlq       *kafka.Producer
	processor *Processor
	cfg       *kafka.Config
	logger    *slog.Logger
}

// NewConsumer subscribes the configured group; dlq receives undeliverable events
func NewConsumer(cfg *kafka.Config, processor *Processor, dlq *kafka.Producer, logger *slog.Logger) (*Consumer, error) {
	c, err := ckafka.NewConsumer(&ckafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized",
		"brokers", cfg.Brokers,
		"topic", cfg.NotificationsTopic,
		"group", cfg.ConsumerGroup)

	return &Consumer{consumer: c, dlq: dlq, processor: processor, cfg: cfg, logger: logger}, nil
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consumer.Subscribe(c.cfg.NotificationsTopic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer shutting down...")
			return nil
		default:
		}

		msg, err := c.consumer.ReadMessage(time.Second)
		if err != nil {
			var kerr ckafka.Error
			if errors.As(err, &kerr) && kerr.Code() == ckafka.ErrTimedOut {
				continue
			}
			c.logger.Error("Error reading message", "error", err)
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *ckafka.Message) {
	ev, outcome, err := c.processor.Handle(ctx, msg.Value)
	switch outcome {
	case Retry:
		c.logger.Error("Notification will be redelivered", "message_id", ev.MessageID, "error", err)
		c.rewind(msg)
		return
	case DeadLetter:
		c.sendToDLQ(ev, err)
	}
	c.commit(msg)
}

func (c *Consumer) sendToDLQ(ev Event, cause error) {
	payload := map[string]any{
		"original_event": ev,
		"error":          cause.Error(),
		"failed_at":      time.Now(),
		"consumer_group": c.cfg.ConsumerGroup,
	}
	if err := c.dlq.Publish(c.cfg.NotificationsDLQTopic, ev.MessageID, payload); err != nil {
		c.logger.Error("Failed to send to DLQ", "message_id", ev.MessageID, "error", err)
		return
	}
	c.logger.Warn("Notification sent to DLQ", "message_id", ev.MessageID, "dlq_topic", c.cfg.NotificationsDLQTopic)
}

func (c *Consumer) commit(msg *ckafka.Message) {
	if _, err := c.consumer.CommitMessage(msg); err != nil {
		c.logger.Error("Failed to commit offset",
			"partition", msg.TopicPartition.Partition,
			"offset", msg.TopicPartition.Offset,
			"error", err)
	}
}

// rewind seeks back so the uncommitted message is read again
func (c *Consumer) rewind(msg *ckafka.Message) {
	if err := c.consumer.Seek(msg.TopicPartition, 1000); err != nil {
		c.logger.Error("Failed to seek back", "offset", msg.TopicPartition.Offset, "error", err)
	}
}

// Close flushes the DLQ producer and leaves the group
func (c *Consumer) Close() {
	c.dlq.Close()
	if err := c.consumer.Close(); err != nil {
		c.logger.Error("Failed to close consumer", "error", err)
	}
}
