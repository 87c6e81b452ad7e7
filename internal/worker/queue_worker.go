package worker

import (
	"context"
	"time"

	"github.com/ignite/email-delivery/internal/pkg/logger"
	"github.com/ignite/email-delivery/internal/service/campaign"
	"github.com/ignite/email-delivery/internal/service/queue"
)

const (
	// DefaultQueueInterval is how often the queue is polled.
	DefaultQueueInterval = 30 * time.Second

	// maxDrainRounds bounds back-to-back batches per wake-up.
	maxDrainRounds = 20
)

// BatchProcessor is the delivery queue processor.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batchSize int) (queue.BatchResult, error)
}

// QueueWorker drains the send queue on an interval and whenever a
// batch-ready notification arrives.
type QueueWorker struct {
	proc      BatchProcessor
	batchSize int
	interval  time.Duration
	wake      chan struct{}
}

// NewQueueWorker creates a queue worker. Zero values fall back to the
// defaults.
func NewQueueWorker(proc BatchProcessor, batchSize int, interval time.Duration) *QueueWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = DefaultQueueInterval
	}
	return &QueueWorker{proc: proc, batchSize: batchSize, interval: interval, wake: make(chan struct{}, 1)}
}

// Start runs until ctx is cancelled.
func (w *QueueWorker) Start(ctx context.Context) {
	logger.Info("[QueueWorker] starting", "interval", w.interval.String(), "batch_size", w.batchSize)

	w.drain(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[QueueWorker] stopping")
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.wake:
			w.drain(ctx)
		}
	}
}

// Wake schedules an immediate drain. It never blocks; wake-ups that arrive
// while one is pending are merged.
func (w *QueueWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// HandleBatchReady is the AMQP consumer callback.
func (w *QueueWorker) HandleBatchReady(_ context.Context, b campaign.BatchReady) error {
	logger.Debug("[QueueWorker] batch ready", "campaign_id", b.CampaignID, "queued", b.Queued)
	w.Wake()
	return nil
}

// drain processes full batches back to back until a short batch shows the
// due work is exhausted.
func (w *QueueWorker) drain(ctx context.Context) {
	for round := 0; round < maxDrainRounds; round++ {
		if ctx.Err() != nil {
			return
		}
		res, err := w.proc.ProcessBatch(ctx, w.batchSize)
		if err != nil {
			logger.Error("[QueueWorker] batch failed", "error", err)
			return
		}
		if res.Attempted > 0 {
			logger.Info("[QueueWorker] batch done", "attempted", res.Attempted, "sent", res.Sent, "failed", res.Failed)
		}
		if res.Attempted < w.batchSize {
			return
		}
	}
}
