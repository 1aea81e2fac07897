package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// fixedWindow counts a hit in KEYS[1]. The window (ARGV[1], ms) starts with
// the first hit; a counter that somehow lost its TTL gets one again.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// CompareAndDelete reports whether key still held expected and was removed.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	n, err := compareAndDelete.Run(ctx, c.store, []string{key}, expected).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FixedWindowAllow counts one hit against scope and reports whether it is
// within limit, along with the count so far in the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	count, err := fixedWindow.Run(ctx, c.store, []string{c.RateLimitKey(scope)}, ms).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}
