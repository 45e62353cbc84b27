package stats_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitra/internal/events"
	"visitra/internal/stats"
	"visitra/internal/storage"
)

func seedPageViews(t *testing.T, store *storage.Store, pageViews []events.PageView) {
	t.Helper()
	for i, view := range pageViews {
		view.ID = string(rune('a' + i))
		pk, sk := storage.PageViewKey(view.SiteID, view.Timestamp, view.ID)
		require.NoError(t, store.Put(pk, sk, view))
	}
}

func TestQuerierTimeSeries(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	querier := stats.NewQuerier(store, slog.Default())

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

	views := []events.PageView{
		pv("v1", "s1", start.Add(15*time.Minute)),
		pv("v1", "s1", start.Add(20*time.Minute)),
		pv("v2", "s2", start.Add(45*time.Minute)),
		pv("v3", "s3", start.Add(time.Hour+5*time.Minute)),
	}
	seedPageViews(t, store, views)

	t.Run("series is gap free over the range", func(t *testing.T) {
		series, err := querier.TimeSeries("site-1", start, end, stats.PeriodHour)
		require.NoError(t, err)
		require.Len(t, series, 5)

		assert.Equal(t, stats.TimePoint{Date: "2024-01-15T10:00:00", Views: 3, Visitors: 2, Sessions: 2}, series[0])
		assert.Equal(t, stats.TimePoint{Date: "2024-01-15T11:00:00", Views: 1, Visitors: 1, Sessions: 1}, series[1])
		assert.Equal(t, stats.TimePoint{Date: "2024-01-15T12:00:00"}, series[2])
	})

	t.Run("range excludes page views outside it", func(t *testing.T) {
		series, err := querier.TimeSeries("site-1", start.Add(time.Hour), end, stats.PeriodHour)
		require.NoError(t, err)
		assert.Equal(t, 1, series[0].Views)
	})

	t.Run("unknown site yields an all-zero series", func(t *testing.T) {
		series, err := querier.TimeSeries("site-none", start, end, stats.PeriodHour)
		require.NoError(t, err)
		require.Len(t, series, 5)
		for _, point := range series {
			assert.Zero(t, point.Views)
		}
	})
}

func TestQuerierBreakdowns(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	querier := stats.NewQuerier(store, slog.Default())
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	views := []events.PageView{
		pv("v1", "s1", start),
		pv("v2", "s2", start.Add(time.Minute)),
		pv("v3", "s3", start.Add(2*time.Minute)),
	}
	views[0].Country = "DE"
	views[1].Country = "DE"
	views[2].Country = "FR"
	views[0].ReferrerSource = "Google"
	views[1].ReferrerSource = "Direct"
	views[2].ReferrerSource = "Google"
	seedPageViews(t, store, views)

	t.Run("countries resolve to display names", func(t *testing.T) {
		breakdown, err := querier.CountryBreakdown("site-1", start, start.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, breakdown, 2)
		assert.Equal(t, stats.LabelCount{Label: "Germany", Visitors: 2}, breakdown[0])
		assert.Equal(t, stats.LabelCount{Label: "France", Visitors: 1}, breakdown[1])
	})

	t.Run("referrer sources count distinct visitors", func(t *testing.T) {
		breakdown, err := querier.ReferrerBreakdown("site-1", start, start.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, breakdown, 2)
		assert.Equal(t, stats.LabelCount{Label: "Google", Visitors: 2}, breakdown[0])
	})
}

func TestRollup(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	querier := stats.NewQuerier(store, slog.Default())
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	seedPageViews(t, store, []events.PageView{
		pv("v1", "s1", start.Add(10*time.Minute)),
		pv("v2", "s2", start.Add(15*time.Minute)),
	})

	require.NoError(t, querier.Rollup("site-1", start, end, stats.PeriodHour))

	buckets, err := querier.ReadBuckets("site-1", stats.PeriodHour)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, stats.StatsBucket{
		SiteID: "site-1", Period: "hour", BucketKey: "2024-01-15T10:00:00",
		Views: 2, Visitors: 2, Sessions: 2,
	}, buckets[0])
	assert.Zero(t, buckets[1].Views, "gap buckets are persisted as zeroes")

	t.Run("rollup is recomputable", func(t *testing.T) {
		require.NoError(t, querier.Rollup("site-1", start, end, stats.PeriodHour))
		again, err := querier.ReadBuckets("site-1", stats.PeriodHour)
		require.NoError(t, err)
		assert.Equal(t, buckets, again)
	})
}

func TestRealtime(t *testing.T) {
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	realtime := stats.NewRealtime(store, 5*time.Minute, slog.Default())
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	require.NoError(t, realtime.RecordVisit("site-1", "v1", now.Add(-4*time.Minute)))
	require.NoError(t, realtime.RecordVisit("site-1", "v2", now.Add(-2*time.Minute)))
	require.NoError(t, realtime.RecordVisit("site-1", "v1", now.Add(-time.Minute)))
	require.NoError(t, realtime.RecordVisit("site-1", "v3", now.Add(-10*time.Minute)))

	t.Run("window counts distinct visitors", func(t *testing.T) {
		active, err := realtime.ActiveVisitors("site-1", now)
		require.NoError(t, err)
		assert.Equal(t, 2, active, "v1 counts once, v3 is outside the window")
	})

	t.Run("other sites are isolated", func(t *testing.T) {
		active, err := realtime.ActiveVisitors("site-2", now)
		require.NoError(t, err)
		assert.Zero(t, active)
	})
}
