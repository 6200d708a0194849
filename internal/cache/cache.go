package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindowScript increments KEYS[1] and arms its TTL on the first hit of a
// window. A key found without a TTL is re-armed as well, so a crash between
// INCR and EXPIRE cannot leave a counter that never resets.
var incrWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('TTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Client wraps the Redis connection shared by the process.
type Client struct {
	client redis.UniversalClient
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// NewWithClient wraps an existing client; useful with miniredis in tests.
func NewWithClient(client redis.UniversalClient) *Client {
	return &Client{client: client}
}

// Ping checks Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

// IncrWindow atomically increments the counter at key, starting a fresh
// window of the given length when the key does not exist, and returns the
// post-increment count with the remaining TTL of the window.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	res, err := incrWindowScript.Run(ctx, c.client, []string{key}, seconds).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("incr window %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("incr window %s: unexpected reply length %d", key, len(res))
	}
	return res[0], time.Duration(res[1]) * time.Second, nil
}
