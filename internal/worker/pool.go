// Package worker drives concurrent transfer workers against a shared
// workload.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dirpush/internal/candidate"
	"dirpush/internal/metrics"
	"dirpush/internal/transport"
	"dirpush/internal/workload"
)

const defaultPollInterval = 10 * time.Millisecond

// Pool runs a fixed number of workers, each looping acquire → upload →
// report until no candidate is pending and none is in flight.
type Pool struct {
	size         int
	transport    transport.Transport
	collector    *metrics.Collector
	logger       *zap.Logger
	pollInterval time.Duration
}

// NewPool creates a pool of size workers. collector may be nil.
func NewPool(size int, tr transport.Transport, collector *metrics.Collector, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:         size,
		transport:    tr,
		collector:    collector,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Run starts the workers and blocks until they all stop. Cancelling ctx
// stops acquisition; in-flight uploads finish their current attempt and
// pending candidates are left untouched for a future run.
func (p *Pool) Run(ctx context.Context, w *workload.Workload) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error {
			p.work(ctx, id, w)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context, id int, w *workload.Workload) {
	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped, context cancelled")
			return
		default:
		}

		c, ok := w.AcquireNext()
		if !ok {
			if w.RemainingFiles() == 0 {
				logger.Debug("worker finished, nothing left")
				return
			}
			// Another worker is mid-transfer; its failure will not
			// requeue work, so poll instead of blocking.
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.transfer(ctx, logger, w, c)
	}
}

func (p *Pool) transfer(ctx context.Context, logger *zap.Logger, w *workload.Workload, c candidate.File) {
	started := time.Now()
	if p.collector != nil {
		p.collector.SetInFlight(w.Snapshot().InProgress)
	}

	receipt, err := p.transport.Upload(ctx, c).Unpack()
	if err != nil {
		w.MarkFailed(c, err.Error())
		if p.collector != nil {
			p.collector.ObserveFailed()
		}
		logger.Warn("transfer failed",
			zap.String("path", c.LocalPath),
			zap.Error(err))
		return
	}

	w.MarkCompleted(c)
	if p.collector != nil {
		p.collector.ObserveCompleted(c.Size, time.Since(started))
	}
	logger.Info("transfer completed",
		zap.String("path", c.LocalPath),
		zap.String("remote_path", receipt.RemotePath),
		zap.String("receipt", receipt.ID),
		zap.Int64("size", c.Size),
		zap.Duration("took", time.Since(started)))
}
