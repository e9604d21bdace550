package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// newMemOnly skips redis entirely so tests never need a server.
func newMemOnly() *Cache {
	return &Cache{log: zerolog.Nop(), mem: make(map[string]memEntry), done: make(chan struct{})}
}

func TestCacheSetGet(t *testing.T) {
	c := newMemOnly()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("value"), time.Minute)
	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestCacheMiss(t *testing.T) {
	c := newMemOnly()
	_, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := newMemOnly()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCacheZeroTTLDefaults(t *testing.T) {
	c := newMemOnly()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestCacheCloseStopsJanitor(t *testing.T) {
	c := New(context.Background(), "", "", 0, zerolog.Nop())
	assert.NoError(t, c.Close())
	// double close must not panic
	assert.NoError(t, c.Close())

	// memory tier keeps serving after close, only the sweeper stops
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)
}
