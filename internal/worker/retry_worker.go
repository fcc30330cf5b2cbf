package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Drainer is satisfied by queue.OfflineQueue.
type Drainer interface {
	ProcessQueue(ctx context.Context)
	Len() int
}

// RetryWorker re-triggers a queue drain every interval. A drain stops at
// the first failed item; this tick is what resumes it while the device
// stays online and nothing else is enqueued.
type RetryWorker struct {
	q        Drainer
	interval time.Duration
	logger   *zap.Logger
}

func NewRetryWorker(q Drainer, interval time.Duration, logger *zap.Logger) *RetryWorker {
	return &RetryWorker{q: q, interval: interval, logger: logger}
}

// Run ticks every interval until ctx is cancelled. A non-positive interval
// disables the worker.
func (rw *RetryWorker) Run(ctx context.Context) {
	if rw.interval <= 0 {
		rw.logger.Info("retry worker disabled")
		return
	}

	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("retry worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("retry worker stopping")
			return
		case <-ticker.C:
			rw.poll(ctx)
		}
	}
}

func (rw *RetryWorker) poll(ctx context.Context) {
	depth := rw.q.Len()
	if depth == 0 {
		return
	}
	rw.q.ProcessQueue(ctx)
	if remaining := rw.q.Len(); remaining < depth {
		rw.logger.Info("retry drained queued items",
			zap.Int("drained", depth-remaining), zap.Int("remaining", remaining))
	}
}
