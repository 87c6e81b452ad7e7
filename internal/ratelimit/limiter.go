// Package ratelimit implements a fixed-window request throttle keyed by
// client identifier.
//
// Two backends share the Limiter interface: MemoryLimiter keeps counters in
// a process-local map (limits are per instance), RedisLimiter keeps them in
// Redis so every instance sees the same window.
package ratelimit

import (
	"context"
	"math"
	"strings"
	"time"
)

// UnknownIdentifier is the bucket used for requests without an identifier.
const UnknownIdentifier = "unknown"

// Result is the outcome of a Check call.
type Result struct {
	Limited    bool      `json:"isLimited"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetTime"`
	RetryAfter int       `json:"retryAfter"` // seconds, zero when not limited
}

// Limiter counts attempts per identifier in fixed windows.
type Limiter interface {
	Check(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (Result, error)
}

func normalizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return UnknownIdentifier
	}
	return id
}

// buildResult turns a post-increment count into a Result.
func buildResult(count, maxAttempts int, resetAt, now time.Time) Result {
	res := Result{ResetAt: resetAt}
	if count > maxAttempts {
		res.Limited = true
		res.RetryAfter = retryAfterSeconds(resetAt.Sub(now))
		return res
	}
	res.Remaining = maxAttempts - count
	return res
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
