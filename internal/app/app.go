// Package app wires the application components together: storage, the
// browser pool, the crawl engine, the submitter, and the worker loop, plus
// the scheduled stuck-claim sweep.
package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/outreach/internal/browser"
	"github.com/ternarybob/outreach/internal/classifier"
	"github.com/ternarybob/outreach/internal/common"
	"github.com/ternarybob/outreach/internal/crawler"
	"github.com/ternarybob/outreach/internal/interfaces"
	"github.com/ternarybob/outreach/internal/queue"
	storagebadger "github.com/ternarybob/outreach/internal/storage/badger"
	"github.com/ternarybob/outreach/internal/submitter"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	BrowserPool    *browser.Pool
	Engine         *crawler.Engine
	Submitter      *submitter.Submitter
	Coordinator    *queue.Coordinator
	Worker         *queue.Worker

	cron *cron.Cron
}

// New creates the application, initializing components in dependency order.
// Campaign seed files are loaded before the worker starts so freshly queued
// domains are visible on the first poll cycle.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := storagebadger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager
	logger.Info().Str("path", config.Storage.Badger.Path).Msg("Storage initialized")

	a.BrowserPool = browser.NewPool(config.Browser, logger)
	a.Engine = crawler.NewEngine(config.Crawler, classifier.New(logger), logger)
	a.Submitter = submitter.New(a.BrowserPool, config.Submit, config.Browser, logger)

	activity := queue.NewActivityLogger(storageManager.Activity(), logger)
	a.Coordinator = queue.NewCoordinator(storageManager, a.Engine, a.Submitter, activity, config, logger)
	a.Worker = queue.NewWorker(a.Coordinator, config.Worker, logger)

	if err := LoadCampaignsFromFiles(ctx, storageManager, config.Campaigns.Dir, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to load campaign files")
	}

	a.cron = cron.New()
	if schedule := config.Worker.SweepSchedule; schedule != "" {
		_, err := a.cron.AddFunc(schedule, func() {
			a.Coordinator.ResetStuckDomains(context.Background())
		})
		if err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
		}
	}

	return a, nil
}

// Run starts the sweep schedule and blocks in the worker loop until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.cron.Start()
	defer a.cron.Stop()

	return a.Worker.Run(ctx)
}

// Close shuts down components in reverse dependency order
func (a *App) Close() {
	if a.cron != nil {
		a.cron.Stop()
	}

	if a.BrowserPool != nil {
		a.BrowserPool.Shutdown()
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
}
