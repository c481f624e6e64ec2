// Package app wires configuration, discovery, the workload, the worker
// pool, and the transport into one transfer engine.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dirpush/internal/config"
	"dirpush/internal/discover"
	"dirpush/internal/ledger"
	"dirpush/internal/metrics"
	"dirpush/internal/transport"
	"dirpush/internal/validate"
	"dirpush/internal/worker"
	"dirpush/internal/workload"
)

// Engine runs one discovery-to-completion transfer.
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *ledger.Store
	validator validate.Validator
	transport transport.Transport
	collector *metrics.Collector
	workload  *workload.Workload
}

// New builds an engine from the configuration.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	tr, err := transport.NewS3(transport.S3Config{
		Endpoint:  cfg.Remote.Endpoint,
		AccessKey: cfg.Remote.AccessKey,
		SecretKey: cfg.Remote.SecretKey,
		Bucket:    cfg.Remote.Bucket,
		Prefix:    cfg.Remote.Prefix,
		Secure:    cfg.Remote.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	v := validate.Chain{
		validate.Readable{},
		validate.MaxSize{Limit: cfg.Transfer.MaxFileSize},
		validate.MediaTypes{Allowed: cfg.Transfer.AllowedMediaTypes},
	}

	return &Engine{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		validator: v,
		transport: tr,
		collector: metrics.New(),
		workload:  workload.New(store),
	}, nil
}

func buildStore(cfg *config.Config, logger *zap.Logger) (*ledger.Store, error) {
	if cfg.Transfer.DisablePersistence {
		return ledger.Disabled(logger), nil
	}

	stateDir := cfg.Transfer.StateDir
	if stateDir == "" {
		var err error
		stateDir, err = ledger.DefaultStateDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate state dir: %w", err)
		}
	}
	return ledger.New(stateDir, cfg.Transfer.Root, logger), nil
}

// Run discovers the root, registers the results, and drives the worker
// pool to completion. Only setup errors are returned; per-file failures
// end up in the workload's buffers and the final summary.
func (e *Engine) Run(ctx context.Context) error {
	maxAge := time.Duration(e.cfg.Transfer.MaxEntryAgeDays) * 24 * time.Hour
	discoverer := discover.New(e.validator, e.store, maxAge, e.logger)

	pending, skips, err := discoverer.Discover(e.cfg.Transfer.Root)
	if err != nil {
		return err
	}

	for _, c := range pending {
		e.workload.Register(c)
	}
	for _, s := range skips {
		e.workload.RegisterSkip(s)
		e.collector.ObserveSkipped()
	}

	e.logger.Info("starting transfer",
		zap.String("root", e.cfg.Transfer.Root),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", len(skips)),
		zap.Int64("total_bytes", e.workload.TotalBytes()),
		zap.Int("concurrency", e.cfg.Transfer.Concurrency),
		zap.Bool("persistence", e.store.Enabled()))

	if e.cfg.Transfer.DryRun {
		for _, c := range pending {
			e.logger.Info("would transfer",
				zap.String("path", c.LocalPath),
				zap.Int64("size", c.Size),
				zap.String("media_type", c.MediaType))
		}
		return nil
	}

	if addr := e.cfg.Transfer.MetricsAddr; addr != "" {
		go func() {
			if err := e.collector.StartServer(addr); err != nil {
				e.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	pool := worker.NewPool(e.cfg.Transfer.Concurrency, e.transport, e.collector, e.logger)
	if err := pool.Run(ctx, e.workload); err != nil {
		return err
	}

	e.logSummary()
	return nil
}

// Workload exposes the run's result buffers for inspection.
func (e *Engine) Workload() *workload.Workload {
	return e.workload
}

func (e *Engine) logSummary() {
	stats := e.workload.Snapshot()
	e.logger.Info("transfer finished",
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("pending", stats.Pending),
		zap.Int64("remaining_bytes", stats.RemainingBytes))

	for _, f := range e.workload.Failed() {
		e.logger.Warn("file was not transferred",
			zap.String("path", f.File.LocalPath),
			zap.String("reason", f.Reason))
	}
}
