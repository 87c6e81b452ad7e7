package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter and starts the window on the
// first hit. Returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter is a fixed-window limiter shared across instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter storing counters under prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// Check records one attempt for identifier atomically in Redis.
func (l *RedisLimiter) Check(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (Result, error) {
	key := l.prefix + normalizeIdentifier(identifier)
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit check %s: unexpected reply %v", key, vals)
	}

	now := l.now()
	resetAt := now.Add(time.Duration(vals[1]) * time.Millisecond)
	return buildResult(int(vals[0]), maxAttempts, resetAt, now), nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (l *RedisLimiter) Close() error { return nil }
