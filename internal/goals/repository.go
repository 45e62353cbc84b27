package goals

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"visitra/internal/storage"
)

// ErrGoalNotFound is returned when a goal id does not exist for a site.
var ErrGoalNotFound = errors.New("goals: goal not found")

// Repository reads goal definitions from the store. Definitions are written
// by the management layer; the matcher only consumes them.
type Repository struct {
	store *storage.Store
	log   *slog.Logger
}

// NewRepository creates a goal repository over the store.
func NewRepository(store *storage.Store, logger *slog.Logger) *Repository {
	return &Repository{
		store: store,
		log:   logger.With(slog.String("component", "goals")),
	}
}

// Put writes a goal definition. Exposed for the management boundary and for
// test seeding.
func (r *Repository) Put(g Goal) error {
	if g.ID == "" || g.SiteID == "" {
		return errors.New("goals: id and site id are required")
	}
	pk, sk := storage.GoalKey(g.SiteID, g.ID)
	if err := r.store.Put(pk, sk, g); err != nil {
		return fmt.Errorf("goals: failed to persist goal %s: %w", g.ID, err)
	}
	return nil
}

// Get reads one goal definition.
func (r *Repository) Get(siteID, goalID string) (*Goal, error) {
	pk, sk := storage.GoalKey(siteID, goalID)

	var g Goal
	if err := r.store.Get(pk, sk, &g); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("goals: failed to read goal %s: %w", goalID, err)
	}
	return &g, nil
}

// ListBySite returns all goal definitions of a site.
func (r *Repository) ListBySite(siteID string) ([]Goal, error) {
	pk, _ := storage.GoalKey(siteID, "")

	var listed []Goal
	err := r.store.QueryPrefix(pk, storage.GoalScanPrefix(), func(sk string, value []byte) error {
		var g Goal
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("bad goal record at %s: %w", sk, err)
		}
		listed = append(listed, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("goals: failed to list goals for %s: %w", siteID, err)
	}
	return listed, nil
}
