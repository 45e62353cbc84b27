package jobs_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitra/internal/config"
	"visitra/internal/events"
	"visitra/internal/jobs"
	"visitra/internal/sites"
	"visitra/internal/stats"
	"visitra/internal/storage"
)

func newJobFixture(t *testing.T) (*storage.Store, *sites.Repository, *sites.Site) {
	t.Helper()
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := sites.NewRepository(store, slog.Default())
	site, err := repo.Create(sites.CreateInput{
		Name:    "Example",
		Domains: []string{"example.com"},
		OwnerID: "owner-1",
	})
	require.NoError(t, err)
	return store, repo, site
}

func storePageView(t *testing.T, store *storage.Store, siteID, id string, ts time.Time) {
	t.Helper()
	view := events.PageView{
		ID: id, SiteID: siteID, VisitorID: "v-" + id, SessionID: "s-" + id,
		Path: "/", EventType: "pageview", Timestamp: ts,
	}
	pk, sk := storage.PageViewKey(siteID, ts, id)
	require.NoError(t, store.Put(pk, sk, view))
}

func TestRollupJob(t *testing.T) {
	store, repo, site := newJobFixture(t)

	now := time.Now().UTC()
	storePageView(t, store, site.ID, "a", now.Add(-2*time.Hour))
	storePageView(t, store, site.ID, "b", now.Add(-90*time.Minute))

	job := jobs.NewRollupJob(store, repo, slog.Default())
	require.NoError(t, job.Run())

	querier := stats.NewQuerier(store, slog.Default())
	hourly, err := querier.ReadBuckets(site.ID, stats.PeriodHour)
	require.NoError(t, err)
	assert.NotEmpty(t, hourly)

	views := 0
	for _, bucket := range hourly {
		views += bucket.Views
	}
	assert.Equal(t, 2, views)

	daily, err := querier.ReadBuckets(site.ID, stats.PeriodDay)
	require.NoError(t, err)
	assert.NotEmpty(t, daily)
}

func TestRollupJobSkipsInactiveSites(t *testing.T) {
	store, repo, site := newJobFixture(t)

	site.Active = false
	require.NoError(t, repo.Update(site))
	storePageView(t, store, site.ID, "a", time.Now().UTC().Add(-time.Hour))

	job := jobs.NewRollupJob(store, repo, slog.Default())
	require.NoError(t, job.Run())

	querier := stats.NewQuerier(store, slog.Default())
	hourly, err := querier.ReadBuckets(site.ID, stats.PeriodHour)
	require.NoError(t, err)
	assert.Empty(t, hourly)
}

func TestRetentionJob(t *testing.T) {
	store, repo, site := newJobFixture(t)

	now := time.Now().UTC()
	storePageView(t, store, site.ID, "old", now.AddDate(0, 0, -100))
	storePageView(t, store, site.ID, "older", now.AddDate(0, 0, -400))
	storePageView(t, store, site.ID, "fresh", now.Add(-time.Hour))

	cfg := &config.Config{PageViewRetentionDays: 90}
	job := jobs.NewRetentionJob(store, repo, slog.Default(), cfg)
	require.NoError(t, job.Run())

	querier := stats.NewQuerier(store, slog.Default())
	remaining, err := querier.PageViewsInRange(site.ID, now.AddDate(-2, 0, 0), now)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)

	t.Run("zero retention disables the sweep", func(t *testing.T) {
		storePageView(t, store, site.ID, "ancient", now.AddDate(-1, 0, 0))
		job := jobs.NewRetentionJob(store, repo, slog.Default(), &config.Config{})
		require.NoError(t, job.Run())

		remaining, err := querier.PageViewsInRange(site.ID, now.AddDate(-2, 0, 0), now)
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
	})
}
