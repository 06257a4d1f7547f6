package notify

import (
	"context"
	"log/slog"

	"studybuddy/internal/kafka"
)

// KafkaPublisher writes events to the notifications topic keyed by recipient,
// so one user's notifications stay ordered on a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher publishes to topic through producer
func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish enqueues ev; delivery is reported asynchronously by the producer
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.producer.Publish(p.topic, ev.Recipient, ev)
}

// PublisherFromEnv connects a KafkaPublisher when KAFKA_BROKERS is set.
// Without brokers it returns a nil Publisher and notifications are skipped.
// The returned close func is never nil.
func PublisherFromEnv(logger *slog.Logger) (Publisher, func()) {
	cfg, err := kafka.LoadConfig()
	if err != nil {
		logger.Warn("Kafka not configured, notifications disabled", "error", err)
		return nil, func() {}
	}
	producer, err := kafka.NewProducer(cfg, logger)
	if err != nil {
		logger.Error("Failed to create Kafka producer, notifications disabled", "error", err)
		return nil, func() {}
	}
	return NewKafkaPublisher(producer, cfg.NotificationsTopic), producer.Close
}
