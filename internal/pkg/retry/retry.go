// Package retry implements synchronous bounded retry with exponential
// backoff for calls where the caller is willing to block for stronger
// delivery assurance.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// DefaultMaxAttempts is the attempt budget used when callers pass <= 0.
const DefaultMaxAttempts = 3

// Policy configures a retry loop. BaseDelay is multiplied by 2^attempt,
// so the default yields waits of 1s, 2s, 4s, ...
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy used by the order confirmation path.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait after the given zero-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds or MaxAttempts calls have failed, waiting
// Delay(attempt) between calls. It returns the last error, wrapped with the
// attempt count. Context cancellation aborts the wait and returns the last
// error seen.
func (p Policy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		logger.Warn("[retry] attempt failed",
			"op", name, "attempt", attempt+1, "max_attempts", attempts, "wait", delay.String(), "error", lastErr)

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: aborted after %d attempts: %w", name, attempt+1, lastErr)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

// SendWithRetry runs fn with the default backoff policy and the given
// attempt budget.
func SendWithRetry(ctx context.Context, fn func(ctx context.Context) error, maxRetries int) error {
	p := DefaultPolicy()
	p.MaxAttempts = maxRetries
	return p.Do(ctx, "send", fn)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
