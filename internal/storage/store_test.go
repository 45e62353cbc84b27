package storage_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitra/internal/storage"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutGet(t *testing.T) {
	store := openTestStore(t)

	t.Run("round-trips a record", func(t *testing.T) {
		require.NoError(t, store.Put("SITE#s1", "META", testRecord{Name: "example", Count: 3}))

		var got testRecord
		require.NoError(t, store.Get("SITE#s1", "META", &got))
		assert.Equal(t, testRecord{Name: "example", Count: 3}, got)
	})

	t.Run("missing keys return ErrNotFound", func(t *testing.T) {
		var got testRecord
		err := store.Get("SITE#missing", "META", &got)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put replaces the full record", func(t *testing.T) {
		require.NoError(t, store.Put("SITE#s1", "META", testRecord{Name: "replaced"}))

		var got testRecord
		require.NoError(t, store.Get("SITE#s1", "META", &got))
		assert.Equal(t, "replaced", got.Name)
		assert.Zero(t, got.Count)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Put("SITE#s2", "META", testRecord{}))
		require.NoError(t, store.Delete("SITE#s2", "META"))
		require.NoError(t, store.Delete("SITE#s2", "META"))

		var got testRecord
		assert.ErrorIs(t, store.Get("SITE#s2", "META", &got), storage.ErrNotFound)
	})
}

func TestStoreQueryRange(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		pk, sk := storage.PageViewKey("s1", base.Add(time.Duration(i)*time.Hour), "id")
		require.NoError(t, store.Put(pk, sk, testRecord{Count: i}))
	}
	// a different partition must not leak in
	otherPK, otherSK := storage.PageViewKey("s2", base, "id")
	require.NoError(t, store.Put(otherPK, otherSK, testRecord{Count: 99}))

	t.Run("returns records inside the bounds in order", func(t *testing.T) {
		low, high := storage.PageViewRange(base.Add(time.Hour), base.Add(3*time.Hour))

		var counts []int
		err := store.QueryRange("SITE#s1", low, high, func(sk string, value []byte) error {
			var rec testRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return err
			}
			counts = append(counts, rec.Count)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, counts)
	})

	t.Run("bounds are inclusive at both ends", func(t *testing.T) {
		low, high := storage.PageViewRange(base, base.Add(4*time.Hour))

		var n int
		require.NoError(t, store.QueryRange("SITE#s1", low, high, func(string, []byte) error {
			n++
			return nil
		}))
		assert.Equal(t, 5, n)
	})

	t.Run("query prefix scans one entity type", func(t *testing.T) {
		sessPK, sessSK := storage.SessionKey("s1", "sess-1")
		require.NoError(t, store.Put(sessPK, sessSK, testRecord{Name: "session"}))

		var sessions int
		require.NoError(t, store.QueryPrefix("SITE#s1", "SESSION#", func(string, []byte) error {
			sessions++
			return nil
		}))
		assert.Equal(t, 1, sessions)
	})
}

func TestStoreSecondaryIndex(t *testing.T) {
	store := openTestStore(t)

	for _, siteID := range []string{"s1", "s2"} {
		pk, sk := storage.SiteKey(siteID)
		idxPK, idxSK := storage.OwnerIndexKey("owner-1", siteID)
		require.NoError(t, store.PutIndexed(pk, sk, idxPK, idxSK, testRecord{Name: siteID}))
	}
	pk, sk := storage.SiteKey("s3")
	idxPK, idxSK := storage.OwnerIndexKey("owner-2", "s3")
	require.NoError(t, store.PutIndexed(pk, sk, idxPK, idxSK, testRecord{Name: "s3"}))

	t.Run("lists records by index partition", func(t *testing.T) {
		var names []string
		err := store.QueryIndex("OWNER#owner-1", func(pk, sk string, value []byte) error {
			var rec testRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return err
			}
			names = append(names, rec.Name)
			return nil
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"s1", "s2"}, names)
	})

	t.Run("other owners see nothing", func(t *testing.T) {
		var n int
		require.NoError(t, store.QueryIndex("OWNER#owner-3", func(string, string, []byte) error {
			n++
			return nil
		}))
		assert.Zero(t, n)
	})

	t.Run("index entries do not pollute partition scans", func(t *testing.T) {
		var n int
		require.NoError(t, store.QueryPrefix("SITE#s1", "", func(string, []byte) error {
			n++
			return nil
		}))
		assert.Equal(t, 1, n)
	})
}
