// Package kafka wraps the confluent producer used to publish JSON events.
package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer publishes JSON values and logs delivery reports in the background
type Producer struct {
	producer *kafka.Producer
	config   *Config
	logger   *slog.Logger
}

// NewProducer creates an idempotent producer
func NewProducer(config *Config, logger *slog.Logger) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     config.Brokers,
		"enable.idempotence":                    config.EnableIdempotence,
		"acks":                                  config.Acks,
		"max.in.flight.requests.per.connection": 5,
		"retries":                               2147483647,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	producer := &Producer{producer: p, config: config, logger: logger}
	go producer.handleDeliveryReports()

	logger.Info("Kafka producer initialized",
		"brokers", config.Brokers,
		"idempotence", config.EnableIdempotence)
	return producer, nil
}

func message(topic, key string, v any) (*kafka.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// Publish enqueues v as JSON. Delivery failures are logged by the report handler.
func (p *Producer) Publish(topic, key string, v any) error {
	msg, err := message(topic, key, v)
	if err != nil {
		return err
	}
	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	p.logger.Debug("Event published", "topic", topic, "size", len(msg.Value))
	return nil
}

// PublishSync publishes v and waits for the broker to acknowledge it
func (p *Producer) PublishSync(topic, key string, v any) error {
	msg, err := message(topic, key, v)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, delivery); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	m, ok := (<-delivery).(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery report for topic %s", topic)
	}
	if m.TopicPartition.Error != nil {
		return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
	}

	p.logger.Info("Event published (sync)",
		"topic", topic,
		"partition", m.TopicPartition.Partition,
		"offset", m.TopicPartition.Offset)
	return nil
}

func (p *Producer) handleDeliveryReports() {
	for e := range p.producer.Events() {
		ev, ok := e.(*kafka.Message)
		if !ok {
			continue
		}
		if ev.TopicPartition.Error != nil {
			p.logger.Error("Delivery failed",
				"topic", *ev.TopicPartition.Topic,
				"error", ev.TopicPartition.Error)
			continue
		}
		p.logger.Debug("Message delivered",
			"topic", *ev.TopicPartition.Topic,
			"partition", ev.TopicPartition.Partition,
			"offset", ev.TopicPartition.Offset)
	}
}

// Flush waits up to timeoutMs for outstanding messages and returns how many remain
func (p *Producer) Flush(timeoutMs int) int {
	remaining := p.producer.Flush(timeoutMs)
	if remaining > 0 {
		p.logger.Warn("Failed to flush all messages", "remaining", remaining)
	}
	return remaining
}

// Close flushes for up to ten seconds and closes the producer
func (p *Producer) Close() {
	if remaining := p.Flush(10000); remaining > 0 {
		p.logger.Error("Some messages were not delivered", "count", remaining)
	}
	p.producer.Close()
	p.logger.Info("Kafka producer closed")
}
