package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TOPIC_NOTIFICATIONS", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "notifications", cfg.NotificationsTopic)
	assert.Equal(t, "notifications-dlq", cfg.NotificationsDLQTopic)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.BrokerList())
	assert.True(t, cfg.EnableIdempotence)
}
