package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "test:rl:"), mr
}

func TestRedisLimiter_Sequence(t *testing.T) {
	l, mr := setupRedisLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Check(ctx, "10.0.0.2", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Limited)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := l.Check(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Limited)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 60, res.RetryAfter)

	assert.True(t, mr.Exists("test:rl:10.0.0.2"))
	assert.Equal(t, time.Minute, mr.TTL("test:rl:10.0.0.2"))
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	l, mr := setupRedisLimiter(t)
	ctx := context.Background()

	l.Check(ctx, "ip", 1, time.Minute)
	res, _ := l.Check(ctx, "ip", 1, time.Minute)
	require.True(t, res.Limited)

	mr.FastForward(61 * time.Second)

	res, err := l.Check(ctx, "ip", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Limited)
	assert.Equal(t, 0, res.Remaining)
}

func TestRedisLimiter_BlankIdentifier(t *testing.T) {
	l, mr := setupRedisLimiter(t)

	_, err := l.Check(context.Background(), "", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:rl:unknown"))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	l, mr := setupRedisLimiter(t)
	mr.Close()

	_, err := l.Check(context.Background(), "ip", 5, time.Minute)
	assert.Error(t, err)
}
