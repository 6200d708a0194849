package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authservice/internal/cache"
	"authservice/internal/metrics"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewLimiter(cache.NewWithClient(rdb), metrics.NewCollector(prometheus.NewRegistry()))
	return l, mr
}

func TestLimiter_Allow_ExhaustsAndResets(t *testing.T) {
	l, mr := newTestLimiter(t)
	fixed := time.Unix(1_800_000_000, 0)
	l.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		d, err := l.Allow(ctx, "203.0.113.7", "/api/auth/login", "/api/auth/login", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 10-i, d.Remaining)
		assert.Equal(t, 10, d.Limit)
		assert.Equal(t, fixed.Add(time.Minute), d.ResetAt)
	}

	d, err := l.Allow(ctx, "203.0.113.7", "/api/auth/login", "/api/auth/login", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	mr.FastForward(61 * time.Second)

	d, err = l.Allow(ctx, "203.0.113.7", "/api/auth/login", "/api/auth/login", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 9, d.Remaining)
}

func TestLimiter_Allow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "203.0.113.7", "/api/auth/login", "/api/auth/login", 2, time.Minute)
		require.NoError(t, err)
	}

	d, err := l.Allow(ctx, "203.0.113.7", "/api/auth/register", "/api/auth/register", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "198.51.100.1", "/api/auth/login", "/api/auth/login", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "203.0.113.7", "/api/auth/login", "/api/auth/login", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestLimiter_Allow_RecordsRouteNotPath(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	reg := prometheus.NewRegistry()
	l := NewLimiter(cache.NewWithClient(rdb), metrics.NewCollector(reg))
	ctx := context.Background()

	for _, path := range []string{"/api/auth/a", "/api/auth/b"} {
		for i := 0; i < 2; i++ {
			d, err := l.Allow(ctx, "203.0.113.7", path, "/api/auth/:provider", 1, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i == 0, d.Allowed, "%s request %d", path, i)
		}
	}

	count, err := testutil.GatherAndCount(reg, "authservice_rate_limit_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLimiter_Allow_FailsOpen(t *testing.T) {
	l, mr := newTestLimiter(t)
	mr.Close()

	d, err := l.Allow(context.Background(), "203.0.113.7", "/api/auth/login", "/api/auth/login", 10, time.Minute)
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestResetAt_RoundsUp(t *testing.T) {
	now := time.Unix(100, 1)
	assert.Equal(t, time.Unix(131, 0), resetAt(now, 30*time.Second))
	assert.Equal(t, time.Unix(130, 0), resetAt(time.Unix(100, 0), 30*time.Second))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rate_limit:10.0.0.1:/api/auth/login", Key("10.0.0.1", "/api/auth/login"))
}
