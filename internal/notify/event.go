// Package notify delivers email notifications for things that happen in a
// study group. Services publish Events to Kafka; the notifier service
// consumes them, deduplicates by MessageID and sends mail.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType selects the email template
type EventType string

const (
	// TypeCommentReply tells a comment author someone replied
	TypeCommentReply EventType = "comment_reply"
	// TypeWelcome greets a newly registered user
	TypeWelcome EventType = "welcome"
)

// Event is the message written to the notifications topic
type Event struct {
	// MessageID deduplicates redeliveries
	MessageID string         `json:"message_id"`
	Type      EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Recipient string         `json:"recipient"`
	Data      map[string]any `json:"data"`
}

// NewEvent stamps a fresh message id and timestamp
func NewEvent(t EventType, recipient string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		MessageID: uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Recipient: recipient,
		Data:      data,
	}
}

// Validate rejects events the consumer cannot act on
func (e Event) Validate() error {
	switch {
	case e.MessageID == "":
		return errors.New("event missing message_id")
	case e.Recipient == "":
		return errors.New("event missing recipient")
	case e.Type != TypeCommentReply && e.Type != TypeWelcome:
		return errors.New("unsupported event type: " + string(e.Type))
	}
	return nil
}

// Publisher hands an event to the delivery pipeline
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
