package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"visitra/internal/storage"
)

// realtimeSlot stores the distinct visitors seen in one minute. Slots are
// written with a TTL; the store expires them shortly after they leave the
// sliding window.
type realtimeSlot struct {
	Visitors map[string]bool `json:"visitors"`
}

// Realtime maintains the per-minute sliding window of active visitors.
type Realtime struct {
	store  *storage.Store
	window time.Duration
	log    *slog.Logger
}

// NewRealtime creates the realtime tracker. window is the sliding lookback
// used by ActiveVisitors.
func NewRealtime(store *storage.Store, window time.Duration, logger *slog.Logger) *Realtime {
	return &Realtime{
		store:  store,
		window: window,
		log:    logger.With(slog.String("component", "realtime")),
	}
}

// RecordVisit adds a visitor to the current minute's slot. Concurrent
// writers to the same slot may lose an update; realtime counts are
// approximate.
func (r *Realtime) RecordVisit(siteID, visitorID string, ts time.Time) error {
	pk, sk := storage.RealtimeKey(siteID, ts)

	var slot realtimeSlot
	err := r.store.Get(pk, sk, &slot)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("stats: failed to read realtime slot: %w", err)
	}
	if slot.Visitors == nil {
		slot.Visitors = make(map[string]bool)
	}
	slot.Visitors[visitorID] = true

	ttl := r.window + time.Minute
	if err := r.store.PutWithTTL(pk, sk, slot, ttl); err != nil {
		return fmt.Errorf("stats: failed to write realtime slot: %w", err)
	}
	return nil
}

// ActiveVisitors returns the number of distinct visitors seen in the window
// ending at now.
func (r *Realtime) ActiveVisitors(siteID string, now time.Time) (int, error) {
	pk, _ := storage.SiteKey(siteID)
	skLow, skHigh := storage.RealtimeRange(now.Add(-r.window), now)

	visitors := make(map[string]struct{})
	err := r.store.QueryRange(pk, skLow, skHigh, func(sk string, value []byte) error {
		var slot realtimeSlot
		if err := json.Unmarshal(value, &slot); err != nil {
			return fmt.Errorf("bad realtime slot at %s: %w", sk, err)
		}
		for id := range slot.Visitors {
			visitors[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("stats: failed to scan realtime window for %s: %w", siteID, err)
	}
	return len(visitors), nil
}
