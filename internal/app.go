// Package internal wires the application together: configuration, logging,
// the store, the ingestion pipeline, background jobs and the HTTP server.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	v1 "visitra/api/v1"
	"visitra/internal/config"
	"visitra/internal/events"
	"visitra/internal/geo"
	"visitra/internal/goals"
	"visitra/internal/jobs"
	"visitra/internal/logging"
	"visitra/internal/sessions"
	"visitra/internal/sites"
	"visitra/internal/stats"
	"visitra/internal/storage"
)

// Application owns every long-lived component and their shutdown order.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *storage.Store
	Tracker   *sessions.Tracker
	Scheduler *jobs.Scheduler
	Fiber     *fiber.App
}

// NewApp creates a fully wired application instance.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	store, err := storage.Open(storage.Options{
		Path:   cfg.GetStorePath(),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	geo.InitLogger(logger)
	geo.InitGeoDB()

	tracker, err := sessions.NewTracker(store, time.Duration(cfg.GetSessionTimeout())*time.Second, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create session tracker: %w", err)
	}

	realtime := stats.NewRealtime(store, time.Duration(cfg.RealtimeWindowMinutes)*time.Minute, logger)
	collector := events.NewCollector(store, tracker, realtime, logger)

	scheduler, err := jobs.NewScheduler(store, logger)
	if err != nil {
		tracker.Close()
		store.Close()
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	api := &v1.API{
		Collector: collector,
		Sites:     sites.NewRepository(store, logger),
		Goals:     goals.NewRepository(store, logger),
		Querier:   stats.NewQuerier(store, logger),
		Realtime:  realtime,
		Logger:    logger,
	}

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	fiberApp.Use(recover.New())
	MountAppRoutes(fiberApp, api)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Tracker:   tracker,
		Scheduler: scheduler,
		Fiber:     fiberApp,
	}, nil
}

// StartAsync starts background jobs and the HTTP listener without blocking.
func (a *Application) StartAsync() error {
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	go func() {
		addr := ":" + a.Config.AppPort
		a.Logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := a.Fiber.Listen(addr); err != nil {
			a.Logger.Error("HTTP server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Shutdown stops the listener, background jobs and storage, in that order,
// so in-flight requests drain before the store closes.
func (a *Application) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down...")

	if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
		a.Logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}

	a.Scheduler.Stop()
	a.Tracker.Close()
	geo.Close()

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	a.Logger.Info("Shutdown complete")
	return nil
}
