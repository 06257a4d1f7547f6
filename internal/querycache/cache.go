// Package querycache is the read-through cache the services put in front of
// PostgreSQL. Values are kept as encoded bytes in a per-process LRU and,
// when Redis is reachable, in Redis shared by every instance. Concurrent
// misses for one key share a single fetch.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"studybuddy/internal/config"
)

// InvalidationChannel carries invalidated keys between instances
const InvalidationChannel = "querycache:invalidate"

// versionPrefix namespaces the per-key version counters kept in Redis.
// Invalidate bumps them; a fetch only stores when the version it read is unchanged.
const versionPrefix = "querycache:gen:"

// versionTTL outlives any fetch so a counter cannot expire mid-fetch
const versionTTL = 24 * time.Hour

// storeIfCurrent sets KEYS[2] only while KEYS[1] still holds ARGV[1]
var storeIfCurrent = redis.NewScript(`
local v = redis.call("GET", KEYS[1]) or "0"
if v ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

func versionKey(key string) string {
	return versionPrefix + key
}

const (
	defaultLocalSize  = 1024
	defaultTTL        = 2 * time.Minute
	defaultFetchLimit = 10 * time.Second
)

// FetchFunc loads the encoded value for a key on a miss
type FetchFunc func(ctx context.Context) ([]byte, error)

// Invalidator drops cached keys. Services that only need to invalidate take this.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Options configures a Cache
type Options struct {
	// Redis is optional; nil keeps the cache process local
	Redis     *redis.Client
	LocalSize int
	TTL       time.Duration
	// LocalTTL replaces TTL when Redis is nil. Without Redis no invalidation
	// from another service or replica arrives, so entries should live briefly.
	LocalTTL time.Duration
	Logger   *slog.Logger
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is safe for concurrent use
type Cache struct {
	local  *lru.Cache[string, entry]
	remote *redis.Client
	ttl    time.Duration
	log    *slog.Logger
	group  singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// New builds a cache from opts
func New(opts Options) (*Cache, error) {
	size := opts.LocalSize
	if size <= 0 {
		size = defaultLocalSize
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if opts.Redis == nil && opts.LocalTTL > 0 && opts.LocalTTL < ttl {
		ttl = opts.LocalTTL
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	local, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &Cache{
		local:       local,
		remote:      opts.Redis,
		ttl:         ttl,
		log:         log,
		generations: make(map[string]uint64),
	}, nil
}

// ConnectRedis returns a client for addr, or nil when Redis does not answer a
// ping. Callers treat nil as "caching stays local".
func ConnectRedis(ctx context.Context, addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis connection failed, shared cache disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectRedisFromEnv is ConnectRedis with REDIS_ADDR, REDIS_PASSWORD and REDIS_DB
func ConnectRedisFromEnv(ctx context.Context) *redis.Client {
	return ConnectRedis(ctx,
		config.GetEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		config.GetEnvInt("REDIS_DB", 0),
	)
}

// Fetch returns the cached bytes for key, calling fetch on a miss.
// A fetch that overlaps an Invalidate of the same key is returned to its
// callers but never stored.
func (c *Cache) Fetch(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if data, ok := c.getLocal(key); ok {
		return data, nil
	}

	if c.remote != nil {
		data, err := c.remote.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			c.setLocal(key, data)
			return data, nil
		case !errors.Is(err, redis.Nil):
			c.log.Warn("Cache read failed", "key", key, "error", err)
		}
	}

	gen := c.generation(key)
	v, err, _ := c.group.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFetchLimit)
		defer cancel()

		version, versionOK := c.remoteVersion(fetchCtx, key)
		data, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if versionOK {
			c.store(fetchCtx, key, gen, version, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Load is Fetch for JSON encoded values. Every call decodes a fresh T.
func Load[T any](ctx context.Context, c *Cache, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var out T
	data, err := c.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return out, nil
}

// Invalidate removes keys everywhere and tells the other instances to do the same
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c.dropLocal(keys...)

	if c.remote == nil {
		return nil
	}
	_, err := c.remote.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, k := range keys {
			if k == "" {
				continue
			}
			pipe.Incr(ctx, versionKey(k))
			pipe.Expire(ctx, versionKey(k), versionTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	if err := c.remote.Publish(ctx, InvalidationChannel, strings.Join(keys, "\n")).Err(); err != nil {
		c.log.Warn("Failed to broadcast invalidation", "keys", keys, "error", err)
	}
	return nil
}

// InvalidatePrefix removes every key starting with prefix
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	var keys []string
	for _, k := range c.local.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	c.dropLocal(keys...)

	if c.remote == nil {
		return nil
	}

	var remoteKeys []string
	iter := c.remote.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		remoteKeys = append(remoteKeys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return c.Invalidate(ctx, remoteKeys...)
}

// Run applies invalidations broadcast by other instances until ctx ends
func (c *Cache) Run(ctx context.Context) {
	if c.remote == nil {
		return
	}

	sub := c.remote.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.dropLocal(strings.Split(msg.Payload, "\n")...)
		}
	}
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	e, ok := c.local.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.local.Remove(key)
		return nil, false
	}
	return e.data, true
}

func (c *Cache) setLocal(key string, data []byte) {
	c.local.Add(key, entry{data: data, expiresAt: time.Now().Add(c.ttl)})
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

func (c *Cache) dropLocal(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		if k == "" {
			continue
		}
		c.generations[k]++
		c.local.Remove(k)
		c.group.Forget(k)
	}
	c.mu.Unlock()
}

// remoteVersion reads the shared version of key before a fetch. The second
// result is false when Redis could not answer, and the fetch is then not stored.
func (c *Cache) remoteVersion(ctx context.Context, key string) (uint64, bool) {
	if c.remote == nil {
		return 0, true
	}
	v, err := c.remote.Get(ctx, versionKey(key)).Uint64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		c.log.Warn("Cache version read failed", "key", key, "error", err)
		return 0, false
	}
}

// store writes Redis only if no instance invalidated key since version was
// read, then keeps the value locally if no local Invalidate ran either.
func (c *Cache) store(ctx context.Context, key string, gen, version uint64, data []byte) {
	if c.remote != nil {
		stored, err := storeIfCurrent.Run(ctx, c.remote,
			[]string{versionKey(key), key},
			strconv.FormatUint(version, 10), data, c.ttl.Milliseconds(),
		).Int()
		if err != nil {
			c.log.Warn("Cache write failed", "key", key, "error", err)
			return
		}
		if stored == 0 {
			return
		}
	}

	c.mu.Lock()
	current := c.generations[key] == gen
	if current {
		c.local.Add(key, entry{data: data, expiresAt: time.Now().Add(c.ttl)})
	}
	c.mu.Unlock()

	if !current && c.remote != nil {
		c.remote.Del(ctx, key)
	}
}
