package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(Options{LocalSize: 16, TTL: time.Minute})
	require.NoError(t, err)
	return c
}

func countingFetch(calls *int32, value string) FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(value), nil
	}
}

func TestFetch_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)
	var calls int32

	for i := 0; i < 3; i++ {
		data, err := c.Fetch(ctx, "comments:post:1", countingFetch(&calls, "v1"))
		require.NoError(t, err)
		assert.Equal(t, "v1", string(data))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.NoError(t, c.Invalidate(ctx, "comments:post:1"))

	data, err := c.Fetch(ctx, "comments:post:1", countingFetch(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetch_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)
	var calls int32

	a, _ := c.Fetch(ctx, "comments:post:1", countingFetch(&calls, "one"))
	b, _ := c.Fetch(ctx, "comments:post:2", countingFetch(&calls, "two"))
	require.NoError(t, c.Invalidate(ctx, "comments:post:2"))
	a2, _ := c.Fetch(ctx, "comments:post:1", countingFetch(&calls, "changed"))

	assert.Equal(t, "one", string(a))
	assert.Equal(t, "two", string(b))
	assert.Equal(t, "one", string(a2))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)
	boom := errors.New("backend down")

	_, err := c.Fetch(ctx, "k", func(ctx context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	var calls int32
	data, err := c.Fetch(ctx, "k", countingFetch(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.EqualValues(t, 1, calls)
}

func TestFetch_InvalidateDuringFetchIsNotStored(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []byte)

	go func() {
		data, _ := c.Fetch(ctx, "k", func(ctx context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte("stale"), nil
		})
		done <- data
	}()

	<-started
	require.NoError(t, c.Invalidate(ctx, "k"))
	close(release)
	assert.Equal(t, "stale", string(<-done))

	var calls int32
	data, err := c.Fetch(ctx, "k", countingFetch(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
	assert.EqualValues(t, 1, calls)
}

func TestFetch_ExpiredLocalEntry(t *testing.T) {
	ctx := context.Background()
	c, err := New(Options{TTL: time.Millisecond})
	require.NoError(t, err)
	var calls int32

	_, _ = c.Fetch(ctx, "k", countingFetch(&calls, "a"))
	time.Sleep(5 * time.Millisecond)
	_, _ = c.Fetch(ctx, "k", countingFetch(&calls, "b"))

	assert.EqualValues(t, 2, calls)
}

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestLoad_ReturnsFreshCopies(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)
	fetch := func(ctx context.Context) ([]item, error) {
		return []item{{ID: 1, Name: "first"}}, nil
	}

	first, err := Load(ctx, c, "items", fetch)
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := Load(ctx, c, "items", fetch)
	require.NoError(t, err)
	assert.Equal(t, "first", second[0].Name)
}

func TestInvalidatePrefix_Local(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache(t)
	var calls int32

	_, _ = c.Fetch(ctx, "groups:all", countingFetch(&calls, "x"))
	_, _ = c.Fetch(ctx, "group:1", countingFetch(&calls, "x"))
	require.NoError(t, c.InvalidatePrefix(ctx, "groups:"))

	_, _ = c.Fetch(ctx, "groups:all", countingFetch(&calls, "x"))
	_, _ = c.Fetch(ctx, "group:1", countingFetch(&calls, "x"))

	assert.EqualValues(t, 3, calls)
}

func TestInvalidate_NoKeys(t *testing.T) {
	assert.NoError(t, newLocalCache(t).Invalidate(context.Background()))
}

func TestNew_LocalTTLAppliesWithoutRedis(t *testing.T) {
	c, err := New(Options{TTL: time.Minute, LocalTTL: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.ttl)

	// the client is never dialed here
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	c, err = New(Options{Redis: client, TTL: time.Minute, LocalTTL: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, c.ttl)
}

func TestFetch_LocalTTLExpiresWithoutRedis(t *testing.T) {
	ctx := context.Background()
	c, err := New(Options{TTL: time.Minute, LocalTTL: time.Millisecond})
	require.NoError(t, err)
	var calls int32

	_, _ = c.Fetch(ctx, "groups:all", countingFetch(&calls, "a"))
	time.Sleep(5 * time.Millisecond)
	_, _ = c.Fetch(ctx, "groups:all", countingFetch(&calls, "b"))

	assert.EqualValues(t, 2, calls)
}
