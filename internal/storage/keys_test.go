package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitra/internal/storage"
)

func TestSiteKeys(t *testing.T) {
	t.Run("site primary key", func(t *testing.T) {
		pk, sk := storage.SiteKey("site-1")
		assert.Equal(t, "SITE#site-1", pk)
		assert.Equal(t, "META", sk)
	})

	t.Run("owner index round-trips", func(t *testing.T) {
		pk, sk := storage.OwnerIndexKey("owner-9", "site-1")
		assert.Equal(t, "OWNER#owner-9", pk)

		siteID, err := storage.ParseOwnerIndexSortKey(sk)
		require.NoError(t, err)
		assert.Equal(t, "site-1", siteID)
	})
}

func TestPageViewKeys(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)

	t.Run("round-trips timestamp and id", func(t *testing.T) {
		_, sk := storage.PageViewKey("site-1", ts, "01HV5K2J3M")
		gotTS, gotID, err := storage.ParsePageViewSortKey(sk)
		require.NoError(t, err)
		assert.True(t, ts.Equal(gotTS))
		assert.Equal(t, "01HV5K2J3M", gotID)
	})

	t.Run("sort keys order chronologically", func(t *testing.T) {
		_, early := storage.PageViewKey("site-1", ts, "aaa")
		_, late := storage.PageViewKey("site-1", ts.Add(time.Second), "aaa")
		assert.Less(t, early, late)
	})

	t.Run("range bounds enclose same-second ids", func(t *testing.T) {
		low, high := storage.PageViewRange(ts, ts)
		_, sk := storage.PageViewKey("site-1", ts, "zzzzzz")
		assert.LessOrEqual(t, low, sk)
		assert.LessOrEqual(t, sk, high)
	})

	t.Run("rejects foreign sort keys", func(t *testing.T) {
		_, _, err := storage.ParsePageViewSortKey("SESSION#abc")
		assert.Error(t, err)
	})
}

func TestSessionKeys(t *testing.T) {
	pk, sk := storage.SessionKey("site-1", "sess-42")
	assert.Equal(t, "SITE#site-1", pk)

	sessionID, err := storage.ParseSessionSortKey(sk)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", sessionID)
}

func TestStatsKeys(t *testing.T) {
	t.Run("embeds period and bucket for prefix scans", func(t *testing.T) {
		_, sk := storage.StatsKey("site-1", "hour", "2024-01-15T10:00:00")
		assert.Equal(t, "STATS#HOUR#2024-01-15T10:00:00", sk)

		period, bucket, err := storage.ParseStatsSortKey(sk)
		require.NoError(t, err)
		assert.Equal(t, "hour", period)
		assert.Equal(t, "2024-01-15T10:00:00", bucket)
	})

	t.Run("prefix covers exactly one period", func(t *testing.T) {
		prefix := storage.StatsPrefix("day")
		_, daySK := storage.StatsKey("site-1", "day", "2024-01-15")
		_, hourSK := storage.StatsKey("site-1", "hour", "2024-01-15T10:00:00")
		assert.True(t, len(daySK) > len(prefix) && daySK[:len(prefix)] == prefix)
		assert.False(t, len(hourSK) > len(prefix) && hourSK[:len(prefix)] == prefix)
	})
}

func TestRealtimeKeys(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)

	t.Run("truncates to the minute", func(t *testing.T) {
		_, sk := storage.RealtimeKey("site-1", ts)
		minute, err := storage.ParseRealtimeSortKey(sk)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), minute)
	})

	t.Run("same minute encodes identically", func(t *testing.T) {
		_, a := storage.RealtimeKey("site-1", ts)
		_, b := storage.RealtimeKey("site-1", ts.Add(10*time.Second))
		assert.Equal(t, a, b)
	})
}
