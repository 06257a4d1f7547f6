package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Outcome tells the consumer what to do with the offset
type Outcome int

const (
	// Done commits the offset
	Done Outcome = iota
	// Retry leaves the offset uncommitted so the message is redelivered
	Retry
	// DeadLetter forwards the message to the DLQ and commits
	DeadLetter
)

// Processor turns a raw message into at most one delivered email
type Processor struct {
	sender  Sender
	deduper Deduper
	backoff func() retry.Backoff
	logger  *slog.Logger
}

// NewProcessor retries a failed send up to maxRetries times with exponential backoff
func NewProcessor(sender Sender, deduper Deduper, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Processor {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Processor{
		sender:  sender,
		deduper: deduper,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(uint64(maxRetries-1), retry.NewExponential(baseDelay))
		},
		logger: logger,
	}
}

// Handle decodes and delivers raw. The returned event is zero when raw did not decode.
func (p *Processor) Handle(ctx context.Context, raw []byte) (Event, Outcome, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.logger.Error("Failed to parse notification", "error", err, "raw_value", string(raw))
		return ev, Done, nil
	}
	if err := ev.Validate(); err != nil {
		p.logger.Error("Dropping invalid notification", "message_id", ev.MessageID, "error", err)
		return ev, Done, nil
	}

	seen, err := p.deduper.IsProcessed(ctx, ev.MessageID)
	if err != nil {
		return ev, Retry, err
	}
	if seen {
		p.logger.Warn("Duplicate notification, skipping", "message_id", ev.MessageID, "type", ev.Type)
		return ev, Done, nil
	}

	attempt := 0
	err = retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		if err := p.sender.Send(ctx, ev); err != nil {
			p.logger.Warn("Send failed", "message_id", ev.MessageID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ev, Retry, err
		}
		return ev, DeadLetter, fmt.Errorf("max retries exceeded: %w", err)
	}

	claimed, err := p.deduper.MarkProcessed(ctx, ev)
	if err != nil {
		return ev, Retry, err
	}
	if !claimed {
		p.logger.Warn("Notification was processed by another consumer", "message_id", ev.MessageID)
	}
	p.logger.Info("Notification sent", "message_id", ev.MessageID, "recipient", ev.Recipient, "type", ev.Type)
	return ev, Done, nil
}
