package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const sentKeyPrefix = "notify:sent:"

// Deduper remembers which events were already delivered
type Deduper interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	// MarkProcessed returns false when another consumer got there first
	MarkProcessed(ctx context.Context, ev Event) (bool, error)
}

type sentRecord struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Type      EventType `json:"event_type"`
}

// IdempotencyStore is the Redis Deduper. Records expire after ttl.
type IdempotencyStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyStore keeps delivery records for a day
func NewIdempotencyStore(client *redis.Client, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{redis: client, ttl: 24 * time.Hour, logger: logger}
}

func (s *IdempotencyStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	n, err := s.redis.Exists(ctx, sentKeyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check message %s: %w", messageID, err)
	}
	return n > 0, nil
}

// MarkProcessed uses SET NX so only one consumer can claim a message
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, ev Event) (bool, error) {
	payload, err := json.Marshal(sentRecord{SentAt: time.Now(), Recipient: ev.Recipient, Type: ev.Type})
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, sentKeyPrefix+ev.MessageID, payload, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message %s: %w", ev.MessageID, err)
	}
	return ok, nil
}

// Count returns the number of live delivery records, for /health
func (s *IdempotencyStore) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		count  int64
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, sentKeyPrefix+"*", 100).Result()
		if err != nil {
			return count, fmt.Errorf("failed to scan keys: %w", err)
		}
		count += int64(len(keys))
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
