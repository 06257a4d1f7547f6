package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_DeliversByKey(t *testing.T) {
	b := NewBroker()
	var got []string

	unsub := b.Subscribe("discussion:1", func(ev Event) { got = append(got, ev.Type) })
	b.Subscribe("discussion:2", func(ev Event) { got = append(got, "wrong key") })

	require.NoError(t, b.Publish(context.Background(), Event{Key: "discussion:1", Type: "a"}))
	unsub()
	unsub()
	require.NoError(t, b.Publish(context.Background(), Event{Key: "discussion:1", Type: "b"}))

	assert.Equal(t, []string{"a"}, got)
	assert.Zero(t, b.Subscribers("discussion:1"))
	assert.Equal(t, 1, b.Subscribers("discussion:2"))
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("discussion:3", "discussion_post.created", map[string]int64{"post_id": 9})
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":9}`, string(ev.Payload))
	assert.False(t, ev.At.IsZero())
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_StreamsEventsForKey(t *testing.T) {
	b := NewBroker()
	hub := NewHub(b, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "discussion:5")
	}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return b.Subscribers("discussion:5") == 1 }, time.Second, 10*time.Millisecond)

	ev, err := NewEvent("discussion:5", "discussion_post.created", map[string]int64{"post_id": 1})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), ev))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "discussion_post.created", got.Type)
	assert.Equal(t, "discussion:5", got.Key)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return b.Subscribers("discussion:5") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	hub := NewHub(NewBroker(), []string{"http://localhost:5173"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "k")
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "http://localhost:5173")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestReconnector_BackoffResetsAfterConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var delays []time.Duration
	r := reconnector{
		newBackoff: func() retry.Backoff {
			return retry.NewExponential(10 * time.Millisecond)
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	dropped := errors.New("connection reset")
	attempt := 0
	err := r.run(ctx, func(ctx context.Context, connected func()) error {
		attempt++
		switch attempt {
		case 3:
			connected()
		case 5:
			cancel()
		}
		return dropped
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}, delays)
}
