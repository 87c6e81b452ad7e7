package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often elapsed windows are dropped.
const DefaultSweepInterval = 60 * time.Second

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. It must be closed
// to stop its sweep goroutine.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	sweepEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once
}

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithSweepInterval overrides DefaultSweepInterval. Non-positive values
// keep the default.
func WithSweepInterval(d time.Duration) Option {
	return func(l *MemoryLimiter) {
		if d > 0 {
			l.sweepEvery = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) { l.now = now }
}

// New creates a MemoryLimiter and starts its sweep loop.
func New(opts ...Option) *MemoryLimiter {
	l := &MemoryLimiter{
		entries:    make(map[string]*entry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.sweepLoop()
	return l
}

// Check records one attempt for identifier. The entry is created or reset
// and incremented under a single lock acquisition.
func (l *MemoryLimiter) Check(_ context.Context, identifier string, maxAttempts int, window time.Duration) (Result, error) {
	id := normalizeIdentifier(identifier)
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{resetAt: now.Add(window)}
		l.entries[id] = e
	}
	e.count++
	count, resetAt := e.count, e.resetAt
	l.mu.Unlock()

	return buildResult(count, maxAttempts, resetAt, now), nil
}

// Len returns the number of tracked identifiers.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep removes entries whose window has elapsed and returns how many were
// removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, id)
			n++
		}
	}
	return n
}

// Close stops the sweep loop and drops all counters. Safe to call twice.
func (l *MemoryLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopCh)
		<-l.doneCh
		l.mu.Lock()
		l.entries = make(map[string]*entry)
		l.mu.Unlock()
	})
	return nil
}

func (l *MemoryLimiter) sweepLoop() {
	defer close(l.doneCh)
	ticker := time.NewTicker(l.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
