package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := New(WithClock(clock.Now), WithSweepInterval(time.Hour))
	t.Cleanup(func() { l.Close() })
	return l, clock
}

func TestMemoryLimiter_Sequence(t *testing.T) {
	for _, max := range []int{1, 3, 5} {
		l, _ := newTestLimiter(t)
		ctx := context.Background()

		for i := 1; i <= max; i++ {
			res, err := l.Check(ctx, "10.0.0.1", max, time.Minute)
			require.NoError(t, err)
			assert.False(t, res.Limited, "call %d of max %d", i, max)
			assert.Equal(t, max-i, res.Remaining)
			assert.Zero(t, res.RetryAfter)
		}
		for i := 0; i < 3; i++ {
			res, err := l.Check(ctx, "10.0.0.1", max, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Limited)
			assert.Equal(t, 0, res.Remaining)
			assert.Equal(t, 60, res.RetryAfter)
		}
	}
}

func TestMemoryLimiter_RetryAfterRoundsUp(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	l.Check(ctx, "a", 1, 10*time.Second)
	clock.Advance(2500 * time.Millisecond)

	res, _ := l.Check(ctx, "a", 1, 10*time.Second)
	assert.True(t, res.Limited)
	assert.Equal(t, 8, res.RetryAfter)
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Check(ctx, "user", 2, time.Minute)
	}
	clock.Advance(time.Minute)

	res, err := l.Check(ctx, "user", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Limited)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
}

func TestMemoryLimiter_BlankIdentifierSharesUnknownBucket(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	l.Check(ctx, "", 2, time.Minute)
	l.Check(ctx, "   ", 2, time.Minute)
	res, _ := l.Check(ctx, UnknownIdentifier, 2, time.Minute)
	assert.True(t, res.Limited)

	res, _ = l.Check(ctx, "someone-else", 2, time.Minute)
	assert.False(t, res.Limited)
}

func TestMemoryLimiter_ConcurrentIncrements(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := l.Check(ctx, "hot", 10, time.Minute)
			if !res.Limited {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()

	l.Check(ctx, "short", 5, time.Second)
	l.Check(ctx, "long", 5, time.Hour)
	assert.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_Close(t *testing.T) {
	l := New(WithSweepInterval(time.Millisecond))
	l.Check(context.Background(), "x", 1, time.Minute)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLimiter_NonPositiveSweepInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		var l *MemoryLimiter
		require.NotPanics(t, func() { l = New(WithSweepInterval(d)) }, d)
		assert.Equal(t, DefaultSweepInterval, l.sweepEvery)
		require.NoError(t, l.Close())
	}
}
