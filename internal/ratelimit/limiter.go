// Package ratelimit implements fixed-window request throttling on a shared counter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"authservice/internal/metrics"
)

const keyPrefix = "rate_limit:"

// Counter is an atomically incrementable key-value store with per-key TTL.
// cache.Client implements it on Redis.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Decision is the outcome of one Allow call plus the metadata to report to the client.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a (client, route) pair is still inside its budget.
type Limiter struct {
	counter Counter
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewLimiter creates a Limiter over counter.
func NewLimiter(counter Counter, m metrics.MetricsCollector) *Limiter {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Limiter{counter: counter, metrics: m, now: time.Now}
}

// Key returns the counter key for a client and request path.
func Key(clientKey, pathKey string) string {
	return keyPrefix + clientKey + ":" + pathKey
}

// Allow counts one request from clientKey on pathKey. The request is allowed
// iff the post-increment count is at most limit. A rejection is recorded
// under route, which must come from a bounded set such as the registered
// route template.
//
// If the counter backend fails, Allow returns an allowing Decision together
// with the error: callers proceed unthrottled and only log it.
func (l *Limiter) Allow(ctx context.Context, clientKey, pathKey, route string, limit int, window time.Duration) (Decision, error) {
	count, ttl, err := l.counter.IncrWindow(ctx, Key(clientKey, pathKey), window)
	if err != nil {
		l.metrics.RecordRateLimitBackendError()
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, fmt.Errorf("rate limit counter: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	d := Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt(l.now(), ttl),
	}
	if !d.Allowed {
		l.metrics.RecordRateLimited(route)
	}
	return d, nil
}

// resetAt rounds now up to the whole second and adds the remaining window.
func resetAt(now time.Time, ttl time.Duration) time.Time {
	sec := now.Unix()
	if now.Nanosecond() > 0 {
		sec++
	}
	return time.Unix(sec+int64(ttl/time.Second), 0)
}
