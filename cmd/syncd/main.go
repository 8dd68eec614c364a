// Package main is the entry point for the meetsync daemon. It keeps the
// on-device cache warm by periodically syncing the remote document store
// and sweeping stale rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dkhoury/meetsync/internal/cache"
	"github.com/dkhoury/meetsync/internal/config"
	"github.com/dkhoury/meetsync/internal/connectivity"
	"github.com/dkhoury/meetsync/internal/models"
	"github.com/dkhoury/meetsync/internal/remote"
	"github.com/dkhoury/meetsync/internal/repository"
	"github.com/dkhoury/meetsync/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		// Sync errors on stdout/stderr are expected and can be safely ignored
		// for non-syncable file descriptors (pipes, terminals, etc.)
		_ = log.Sync()
	}()

	log.Info("starting meetsync daemon",
		zap.String("remote", cfg.Remote.BaseURL),
		zap.String("cache", cfg.Cache.Path),
		zap.Duration("remote_timeout", cfg.Remote.Timeout),
	)

	// Open the cache database
	db, err := cache.NewDB(&cfg.Cache, log)
	if err != nil {
		log.Fatal("failed to open cache database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close cache database", zap.Error(err))
		}
	}()

	// Run cache schema migrations
	if err := runMigrations(db, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the remote API client and connectivity monitor
	client := remote.NewClient(&cfg.Remote, log)
	monitor := connectivity.NewProber(client.Health, cfg.Sync.ProbeInterval, log)
	monitor.Probe(ctx)
	go monitor.Start(ctx)

	// Assemble the repositories
	user := repository.StaticUser(cfg.Sync.UserID)
	events := repository.NewEventRepository(client.Events(), db.Events(), monitor, user, cfg.Remote.Timeout, log)
	groups := repository.NewGroupRepository(client.Groups(), client.Groups(), db.Groups(), monitor, user, cfg.Remote.Timeout, log)
	series := repository.NewSeriesRepository(client.Series(), db.Series(), monitor, user, cfg.Remote.Timeout, log)

	// Schedule background jobs
	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.Sync.WarmSchedule, func() {
		warmCache(ctx, events, groups, series, monitor, log)
	})
	if err != nil {
		log.Fatal("invalid warm sync schedule", zap.String("schedule", cfg.Sync.WarmSchedule), zap.Error(err))
	}

	retention := time.Duration(cfg.Cache.RetentionDays) * 24 * time.Hour
	_, err = scheduler.AddFunc(cfg.Sync.SweepSchedule, func() {
		if _, err := db.SweepStale(ctx, time.Now().Add(-retention)); err != nil {
			log.Error("cache sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("invalid sweep schedule", zap.String("schedule", cfg.Sync.SweepSchedule), zap.Error(err))
	}

	scheduler.Start()

	// Warm the cache once at startup so a device going offline right after
	// boot still has data to serve.
	warmCache(ctx, events, groups, series, monitor, log)

	if stats, err := db.Stats(ctx); err == nil {
		log.Info("cache ready", zap.Any("rows", stats))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown: stop scheduling new jobs and let running ones finish
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		log.Warn("timed out waiting for scheduled jobs to finish")
	}

	cancel()
	log.Info("meetsync daemon shut down successfully")
}

// warmCache refreshes the overview and history views of every entity kind.
// Those are the full-set views, so a successful pass also drops rows that
// were deleted remotely.
func warmCache(
	ctx context.Context,
	events *repository.EventRepository,
	groups *repository.GroupRepository,
	series *repository.SeriesRepository,
	monitor connectivity.Monitor,
	log *zap.Logger,
) {
	if !monitor.IsOnline() {
		log.Debug("skipping cache warm, remote unreachable")
		return
	}

	start := time.Now()

	if _, err := events.GetAll(ctx, models.ViewOverview); err != nil {
		log.Warn("event overview warm failed", zap.Error(err))
	}
	if _, err := events.GetAll(ctx, models.ViewHistory); err != nil {
		log.Warn("event history warm failed", zap.Error(err))
	}
	if _, err := groups.GetAll(ctx, models.ViewOverview); err != nil {
		log.Warn("group overview warm failed", zap.Error(err))
	}
	if _, err := series.GetAll(ctx, models.ViewOverview); err != nil {
		log.Warn("series overview warm failed", zap.Error(err))
	}
	if _, err := series.GetAll(ctx, models.ViewHistory); err != nil {
		log.Warn("series history warm failed", zap.Error(err))
	}

	log.Info("cache warm completed", zap.Duration("elapsed", time.Since(start)))
}

// runMigrations runs cache schema migrations using the golang-migrate library
func runMigrations(db *cache.DB, log *zap.Logger) error {
	// Path to migrations directory (relative to binary execution location)
	migrationsPath := "internal/cache/migrations"

	if err := db.RunMigrations(migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}
