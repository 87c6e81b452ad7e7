package worker

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/distlock"
	"github.com/ignite/email-delivery/internal/pkg/logger"
)

// DefaultSweepInterval is how often expired unsubscribe tokens are purged.
const DefaultSweepInterval = time.Hour

// TokenSweepLockKey names the lock shared by every worker instance.
const TokenSweepLockKey = "email:unsubscribe-token-sweep"

// ExpiredTokenSweeper deletes expired unsubscribe tokens.
type ExpiredTokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// TokenSweeper periodically removes expired tokens. Only the instance
// holding the lock sweeps in a given cycle.
type TokenSweeper struct {
	tokens   ExpiredTokenSweeper
	lock     distlock.DistLock
	interval time.Duration
}

// NewTokenSweeper creates a sweeper.
func NewTokenSweeper(tokens ExpiredTokenSweeper, lock distlock.DistLock, interval time.Duration) *TokenSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &TokenSweeper{tokens: tokens, lock: lock, interval: interval}
}

// Start blocks until ctx is cancelled, sweeping once immediately.
func (s *TokenSweeper) Start(ctx context.Context) {
	logger.Info("[TokenSweeper] starting", "interval", s.interval.String())

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[TokenSweeper] stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *TokenSweeper) sweep(ctx context.Context) {
	var removed int64
	ran, err := distlock.WithLock(ctx, s.lock, func(ctx context.Context) error {
		n, err := s.tokens.SweepExpired(ctx)
		removed = n
		return err
	})
	switch {
	case err != nil:
		logger.Error("[TokenSweeper] sweep failed", "error", err)
	case !ran:
		logger.Debug("[TokenSweeper] another instance holds the lock")
	case removed > 0:
		logger.Info("[TokenSweeper] removed expired tokens", "count", removed)
	}
}
