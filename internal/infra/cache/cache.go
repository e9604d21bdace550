package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a byte cache on redis with an in-process fallback. When redis is
// unreachable at startup or errors at runtime, entries silently land in the
// memory map instead, analysis must not depend on the cache tier being up.
type Cache struct {
	rdb *redis.Client
	log zerolog.Logger

	mu  sync.RWMutex
	mem map[string]memEntry

	done      chan struct{}
	closeOnce sync.Once
}

type memEntry struct {
	val       []byte
	expiresAt time.Time
}

// New connects to redis when addr is set. A failed ping is logged and
// degrades to memory-only, never an error.
func New(ctx context.Context, addr, password string, db int, log zerolog.Logger) *Cache {
	c := &Cache{log: log, mem: make(map[string]memEntry), done: make(chan struct{})}

	if addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, falling back to in-memory cache")
		} else {
			c.rdb = rdb
		}
	}

	go c.janitor()
	return c
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return b, true
		}
		if err != redis.Nil {
			c.log.Debug().Err(err).Str("key", key).Msg("redis get failed, trying memory")
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.mem[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.val, true
}

// Set stores with a TTL. Redis errors fall through to memory.
func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, val, ttl).Err(); err == nil {
			return
		} else {
			c.log.Debug().Err(err).Str("key", key).Msg("redis set failed, storing in memory")
		}
	}

	c.mu.Lock()
	c.mem[key] = memEntry{val: val, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Close stops the janitor and closes the redis connection. Safe to call
// more than once.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.rdb != nil {
			err = c.rdb.Close()
		}
	})
	return err
}

// janitor sweeps expired memory entries so a long-running process with a
// dead redis does not grow without bound.
func (c *Cache) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.mem {
				if now.After(e.expiresAt) {
					delete(c.mem, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
