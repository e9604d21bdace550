package browser

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests cover the acquire/release/recycle bookkeeping. Tabs are created
// lazily, so nothing here launches an actual browser.

func testPool(size, quota int) *Pool {
	return NewPool(context.Background(), Config{
		PoolSize:      size,
		PageLoadQuota: quota,
		UserAgents:    []string{"ua-a", "ua-b"},
	}, zerolog.Nop())
}

func TestAcquireBoundsConcurrency(t *testing.T) {
	p := testPool(2, 5)
	defer p.Close()

	s1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// third acquire must block until a release
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.Error(t, err)

	p.Release(s1)
	s3, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s1, s3)

	p.Release(s2)
	p.Release(s3)
}

func TestReleaseRecyclesWhenQuotaSpent(t *testing.T) {
	p := testPool(1, 3)
	defer p.Close()

	s, err := p.Acquire(context.Background())
	require.NoError(t, err)
	firstUA := s.ua

	s.loads = 2
	p.Release(s)
	s, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Loads(), "below quota, no recycle")
	assert.Equal(t, firstUA, s.ua)

	s.loads = 3
	p.Release(s)
	s, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Loads(), "quota spent, session recycled")
	assert.NotEqual(t, firstUA, s.ua, "recycle rotates the user agent")

	p.Release(s)
}

func TestUserAgentsRotateAcrossSessions(t *testing.T) {
	p := testPool(2, 1)
	defer p.Close()

	s1, _ := p.Acquire(context.Background())
	s2, _ := p.Acquire(context.Background())
	assert.NotEqual(t, s1.ua, s2.ua)
	p.Release(s1)
	p.Release(s2)
}

func TestAcquireAfterCloseFails(t *testing.T) {
	p := testPool(1, 1)
	p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Acquire(ctx)
	assert.Error(t, err)
}

func TestReleaseNilIsNoop(t *testing.T) {
	p := testPool(1, 1)
	defer p.Close()
	p.Release(nil)
}
