package kafka

import (
	"errors"
	"strings"

	"studybuddy/internal/config"
)

// Config holds Kafka configuration
type Config struct {
	Brokers               string
	NotificationsTopic    string
	NotificationsDLQTopic string
	ConsumerGroup         string
	EnableIdempotence     bool
	Acks                  string
}

// LoadConfig reads KAFKA_BROKERS and the topic overrides
func LoadConfig() (*Config, error) {
	brokers := config.GetEnvOrDefault("KAFKA_BROKERS", "")
	if brokers == "" {
		return nil, errors.New("KAFKA_BROKERS environment variable is required")
	}

	return &Config{
		Brokers:               brokers,
		NotificationsTopic:    config.GetEnvOrDefault("KAFKA_TOPIC_NOTIFICATIONS", "notifications"),
		NotificationsDLQTopic: config.GetEnvOrDefault("KAFKA_TOPIC_NOTIFICATIONS_DLQ", "notifications-dlq"),
		ConsumerGroup:         config.GetEnvOrDefault("KAFKA_CONSUMER_GROUP", "notifier-group"),
		EnableIdempotence:     true,
		Acks:                  "all",
	}, nil
}

// BrokerList returns the brokers as a slice
func (c *Config) BrokerList() []string {
	parts := strings.Split(c.Brokers, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
