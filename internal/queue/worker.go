package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/outreach/internal/common"
)

// Worker drives the coordinator on a fixed poll interval, running a batch of
// ProcessNextDomain calls concurrently each cycle. Domain failures never
// stop the loop; only context cancellation does.
type Worker struct {
	coordinator *Coordinator
	config      common.WorkerConfig
	logger      arbor.ILogger

	processed atomic.Int64
	cycles    atomic.Int64
}

// NewWorker creates a polling worker around a coordinator
func NewWorker(coordinator *Coordinator, config common.WorkerConfig, logger arbor.ILogger) *Worker {
	return &Worker{
		coordinator: coordinator,
		config:      config,
		logger:      logger,
	}
}

// Run polls until ctx is cancelled. Returns nil on graceful shutdown.
func (w *Worker) Run(ctx context.Context) error {
	pollInterval := w.config.PollInterval.Std()
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	w.logger.Info().
		Dur("poll_interval", pollInterval).
		Int("batch_size", w.batchSize()).
		Msg("Worker loop started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().
				Int64("domains_processed", w.processed.Load()).
				Int64("poll_cycles", w.cycles.Load()).
				Msg("Worker loop stopped")
			return nil
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle sweeps opportunistically, then runs the batch. Each slot claims
// and processes at most one domain; slots that find no work return
// immediately.
func (w *Worker) runCycle(ctx context.Context) {
	w.cycles.Add(1)

	if count := w.coordinator.ResetStuckDomains(ctx); count > 0 {
		w.logger.Info().Int("count", count).Msg("Stuck domains recovered")
	}

	var g errgroup.Group
	for i := 0; i < w.batchSize(); i++ {
		g.Go(func() error {
			if w.coordinator.ProcessNextDomain(ctx) {
				w.processed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.logger.Error().Err(err).Msg("Poll cycle error")
	}
}

// Processed reports the number of domains this worker has processed
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

func (w *Worker) batchSize() int {
	if w.config.BatchSize <= 0 {
		return 4
	}
	return w.config.BatchSize
}
