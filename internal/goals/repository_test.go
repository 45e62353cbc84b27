package goals_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitra/internal/goals"
	"visitra/internal/storage"
)

func newTestRepository(t *testing.T) *goals.Repository {
	t.Helper()
	store, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return goals.NewRepository(store, slog.Default())
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	g := goals.Goal{
		ID: "goal-1", SiteID: "site-1", Name: "Signup",
		Type: goals.GoalEvent, Pattern: "signup", MatchType: goals.MatchExact,
		Value: 9.90, Active: true,
	}
	require.NoError(t, repo.Put(g))

	loaded, err := repo.Get("site-1", "goal-1")
	require.NoError(t, err)
	assert.Equal(t, g, *loaded)

	t.Run("missing goal", func(t *testing.T) {
		_, err := repo.Get("site-1", "nope")
		assert.ErrorIs(t, err, goals.ErrGoalNotFound)
	})

	t.Run("id and site are required", func(t *testing.T) {
		assert.Error(t, repo.Put(goals.Goal{ID: "x"}))
		assert.Error(t, repo.Put(goals.Goal{SiteID: "y"}))
	})
}

func TestRepositoryListBySite(t *testing.T) {
	repo := newTestRepository(t)

	for _, id := range []string{"g1", "g2", "g3"} {
		require.NoError(t, repo.Put(goals.Goal{
			ID: id, SiteID: "site-1", Type: goals.GoalPageView,
			Pattern: "/", MatchType: goals.MatchExact, Active: true,
		}))
	}
	require.NoError(t, repo.Put(goals.Goal{
		ID: "other", SiteID: "site-2", Type: goals.GoalPageView,
		Pattern: "/", MatchType: goals.MatchExact, Active: true,
	}))

	listed, err := repo.ListBySite("site-1")
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	empty, err := repo.ListBySite("site-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
