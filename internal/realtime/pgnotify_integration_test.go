//go:build integration

package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/database/dbtest"
	"studybuddy/internal/realtime"
)

func TestPGNotifier_RoundTrip(t *testing.T) {
	db := dbtest.Start(t)
	n := realtime.NewPGNotifier(db.Pool(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = n.Listen(ctx) }()

	got := make(chan realtime.Event, 1)
	unsub := n.Subscribe("discussion:1", func(ev realtime.Event) { got <- ev })
	defer unsub()

	ev, err := realtime.NewEvent("discussion:1", "discussion_post.created", map[string]int64{"post_id": 7})
	require.NoError(t, err)

	// LISTEN starts asynchronously, so publish until the first event arrives
	deadline := time.After(10 * time.Second)
	for {
		require.NoError(t, n.Publish(ctx, ev))
		select {
		case received := <-got:
			assert.Equal(t, "discussion_post.created", received.Type)
			assert.JSONEq(t, `{"post_id":7}`, string(received.Payload))
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("event never arrived")
		}
	}
}
