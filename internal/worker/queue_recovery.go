package worker

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/logger"
)

const (
	// DefaultRecoveryInterval is how often stale claims are looked for.
	DefaultRecoveryInterval = 2 * time.Minute

	// DefaultStaleAge is how long an entry may sit in processing before the
	// claiming worker is presumed dead.
	DefaultStaleAge = 15 * time.Minute
)

// StaleClaimRecoverer fails queue entries stuck in processing.
type StaleClaimRecoverer interface {
	RecoverStale(ctx context.Context, staleAge time.Duration) (int64, error)
}

// QueueRecoveryWorker periodically settles entries whose worker crashed
// between claim and send. The update is conditional, so every instance can
// run one without a lock.
type QueueRecoveryWorker struct {
	queue    StaleClaimRecoverer
	interval time.Duration
	staleAge time.Duration
}

// NewQueueRecoveryWorker creates a recovery worker. Zero values fall back to
// the defaults.
func NewQueueRecoveryWorker(queue StaleClaimRecoverer, interval, staleAge time.Duration) *QueueRecoveryWorker {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}
	if staleAge <= 0 {
		staleAge = DefaultStaleAge
	}
	return &QueueRecoveryWorker{queue: queue, interval: interval, staleAge: staleAge}
}

// Start blocks until ctx is cancelled.
func (w *QueueRecoveryWorker) Start(ctx context.Context) {
	logger.Info("[QueueRecovery] starting", "interval", w.interval.String(), "stale_age", w.staleAge.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[QueueRecovery] stopping")
			return
		case <-ticker.C:
			w.recover(ctx)
		}
	}
}

func (w *QueueRecoveryWorker) recover(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := w.queue.RecoverStale(queryCtx, w.staleAge)
	if err != nil {
		logger.Error("[QueueRecovery] recovery failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("[QueueRecovery] failed stale claims", "count", n)
	}
}
