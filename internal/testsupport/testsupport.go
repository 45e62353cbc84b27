// Package testsupport provides shared fixtures for handler and integration
// tests: an in-memory store, a wired API and seed helpers.
package testsupport

import (
	"log/slog"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	v1 "visitra/api/v1"
	"visitra/internal"
	"visitra/internal/events"
	"visitra/internal/goals"
	"visitra/internal/sessions"
	"visitra/internal/sites"
	"visitra/internal/stats"
	"visitra/internal/storage"
)

// TestEnv bundles the wired components a handler test needs.
type TestEnv struct {
	Store   *storage.Store
	Tracker *sessions.Tracker
	Sites   *sites.Repository
	Goals   *goals.Repository
	Querier *stats.Querier
	App     *fiber.App
}

// NewTestEnv builds an in-memory store, wires the full API on top of it and
// mounts the application routes on a fresh Fiber app. Everything is cleaned
// up when the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	logger := slog.Default()

	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tracker, err := sessions.NewTracker(store, 30*time.Minute, logger)
	require.NoError(t, err)
	t.Cleanup(tracker.Close)

	realtime := stats.NewRealtime(store, 5*time.Minute, logger)
	collector := events.NewCollector(store, tracker, realtime, logger)

	env := &TestEnv{
		Store:   store,
		Tracker: tracker,
		Sites:   sites.NewRepository(store, logger),
		Goals:   goals.NewRepository(store, logger),
		Querier: stats.NewQuerier(store, logger),
	}

	api := &v1.API{
		Collector: collector,
		Sites:     env.Sites,
		Goals:     env.Goals,
		Querier:   env.Querier,
		Realtime:  realtime,
		Logger:    logger,
	}

	env.App = fiber.New()
	internal.MountAppRoutes(env.App, api)
	return env
}

// CreateTestSite registers a site for the given domain.
func (e *TestEnv) CreateTestSite(t *testing.T, domain string) *sites.Site {
	t.Helper()
	site, err := e.Sites.Create(sites.CreateInput{
		Name:    domain,
		Domains: []string{domain},
		OwnerID: "test-owner",
	})
	require.NoError(t, err)
	return site
}

// SeedGoal stores a goal definition for a site.
func (e *TestEnv) SeedGoal(t *testing.T, g goals.Goal) {
	t.Helper()
	require.NoError(t, e.Goals.Put(g))
}

// SeedPageView persists a raw page view record directly, bypassing the
// collector.
func (e *TestEnv) SeedPageView(t *testing.T, view events.PageView) {
	t.Helper()
	pk, sk := storage.PageViewKey(view.SiteID, view.Timestamp, view.ID)
	require.NoError(t, e.Store.Put(pk, sk, view))
}
