// Package jobs runs the background maintenance loops: periodic stats
// rollups, page view retention sweeps and store garbage collection. The
// core pipeline never depends on these; they only recompute derived data
// and reclaim space.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"visitra/internal/config"
	"visitra/internal/sites"
	"visitra/internal/storage"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	store     *storage.Store
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	rollupJob    *RollupJob
	retentionJob *RetentionJob

	// Tickers for each job type
	rollupTicker    *time.Ticker
	retentionTicker *time.Ticker
	gcTicker        *time.Ticker
}

func NewScheduler(store *storage.Store, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	repo := sites.NewRepository(store, logger)
	s := &Scheduler{
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		enabled: true,
		cfg:     cfg,

		rollupJob:    NewRollupJob(store, repo, logger),
		retentionJob: NewRetentionJob(store, repo, logger, cfg),
	}
	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}
	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")
	s.isRunning = true

	s.startRollupJob()
	s.startRetentionJob()
	s.startGCJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))
	return nil
}

func (s *Scheduler) startRollupJob() {
	interval := time.Duration(s.cfg.JobIntervalSeconds) * time.Second
	s.logger.Info("Starting stats rollup job", slog.Duration("interval", interval))
	s.rollupTicker = time.NewTicker(interval)

	go func() {
		s.logger.Info("Running initial stats rollup...")
		s.executeJobSafely("stats_rollup", s.rollupJob.Run)

		for {
			select {
			case <-s.rollupTicker.C:
				s.executeJobSafely("stats_rollup", s.rollupJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Stats rollup job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startRetentionJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting retention job", slog.Duration("interval", interval))
	s.retentionTicker = time.NewTicker(interval)

	go func() {
		s.logger.Info("Running initial retention sweep...")
		s.executeJobSafely("retention", s.retentionJob.Run)

		for {
			select {
			case <-s.retentionTicker.C:
				s.executeJobSafely("retention", s.retentionJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Retention job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startGCJob() {
	interval := time.Hour
	s.logger.Info("Starting store GC job", slog.Duration("interval", interval))
	s.gcTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.gcTicker.C:
				s.executeJobSafely("store_gc", s.store.RunGC)
			case <-s.ctx.Done():
				s.logger.Info("Store GC job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.rollupTicker != nil {
		s.rollupTicker.Stop()
	}
	if s.retentionTicker != nil {
		s.retentionTicker.Stop()
	}
	if s.gcTicker != nil {
		s.gcTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RollupStats allows manual triggering of a stats rollup.
func (s *Scheduler) RollupStats() error {
	if !s.enabled {
		return nil
	}
	return s.rollupJob.Run()
}
