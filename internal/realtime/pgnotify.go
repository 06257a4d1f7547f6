package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Channel is the NOTIFY channel every service shares
const Channel = "studybuddy_events"

// PGNotifier publishes events with pg_notify and, through Listen, feeds the
// events of every instance into a local Broker
type PGNotifier struct {
	pool   *pgxpool.Pool
	broker *Broker
	log    *slog.Logger
}

func NewPGNotifier(pool *pgxpool.Pool, broker *Broker, log *slog.Logger) *PGNotifier {
	if log == nil {
		log = slog.Default()
	}
	if broker == nil {
		broker = NewBroker()
	}
	return &PGNotifier{pool: pool, broker: broker, log: log}
}

// Publish sends ev to every listening instance, this one included
func (n *PGNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := n.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(data)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", ev.Key, err)
	}
	return nil
}

// Listen holds one pooled connection in LISTEN until ctx ends, reconnecting
// with exponential backoff when the connection drops. The backoff starts over
// once a LISTEN succeeds.
func (n *PGNotifier) Listen(ctx context.Context) error {
	r := reconnector{
		newBackoff: func() retry.Backoff {
			return retry.WithCappedDuration(30*time.Second, retry.NewExponential(500*time.Millisecond))
		},
		sleep: sleepCtx,
		log:   n.log,
	}
	return r.run(ctx, n.listenOnce)
}

// reconnector reruns a session until ctx ends. A session calls connected
// when it is established, which resets the backoff.
type reconnector struct {
	newBackoff func() retry.Backoff
	sleep      func(ctx context.Context, d time.Duration) error
	log        *slog.Logger
}

func (r reconnector) run(ctx context.Context, session func(ctx context.Context, connected func()) error) error {
	backoff := r.newBackoff()
	connected := func() { backoff = r.newBackoff() }

	for {
		err := session(ctx, connected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay, stop := backoff.Next()
		if stop {
			return err
		}
		r.log.Warn("Event listener disconnected, reconnecting", "error", err, "retry_in", delay)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (n *PGNotifier) listenOnce(ctx context.Context, connected func()) error {
	pooled, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	// a LISTENing connection must not go back to the pool
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	connected()
	n.log.Info("Listening for events", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			n.log.Warn("Dropping malformed event", "error", err)
			continue
		}
		n.broker.Dispatch(ev)
	}
}

// Subscribe registers on the local broker fed by Listen
func (n *PGNotifier) Subscribe(key string, fn func(Event)) func() {
	return n.broker.Subscribe(key, fn)
}
