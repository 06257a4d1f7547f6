// Package realtime pushes change events to browsers. Services publish through
// PostgreSQL NOTIFY so every instance sees every event; each instance fans
// them out in process to the websocket clients subscribed to the event key.
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Event tells subscribers of Key that something changed. Clients refetch on
// receipt; Payload only carries ids.
type Event struct {
	Key     string          `json:"key"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// NewEvent encodes payload into an event stamped now
func NewEvent(key, typ string, payload any) (Event, error) {
	ev := Event{Key: key, Type: typ, At: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return ev, err
		}
		ev.Payload = data
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Subscriber interface {
	// Subscribe calls fn for every event on key until the returned func runs.
	// fn must not block.
	Subscribe(key string, fn func(Event)) (unsubscribe func())
}
