// Package sessions reconstructs visit sessions from the stream of collected
// events. Lookup goes through a short-lived in-process cache; on a cache
// miss the durable store is treated as authoritative absence and a new
// session starts. Every mutation is persisted as a full-record upsert, so
// concurrent writers resolve by last-write-wins; session counters are
// eventually-accurate approximations, not exact.
package sessions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"

	"visitra/internal/normalizer"
	"visitra/internal/storage"
)

// Session is the reconstructed state of one browser tab's visit.
type Session struct {
	ID             string    `json:"id"`
	SiteID         string    `json:"siteId"`
	VisitorID      string    `json:"visitorId"`
	EntryPath      string    `json:"entryPath"`
	ExitPath       string    `json:"exitPath"`
	Referrer       string    `json:"referrer,omitempty"`
	ReferrerSource string    `json:"referrerSource,omitempty"`
	DeviceType     string    `json:"deviceType"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	PageViews      int       `json:"pageViews"`
	Events         int       `json:"events"`
	IsBounce       bool      `json:"isBounce"`
	DurationMS     int64     `json:"durationMs"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt"`
}

// TrackInput carries the normalized fields of one event into the tracker.
type TrackInput struct {
	SiteID         string
	SessionID      string
	VisitorID      string
	Path           string
	Referrer       string
	ReferrerSource string
	DeviceType     string
	Browser        string
	OS             string
	EventType      normalizer.EventType
	Timestamp      time.Time
}

// Tracker decides, per event, whether to extend an existing session or
// start a new one.
type Tracker struct {
	cache *ristretto.Cache
	store *storage.Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewTracker creates a session tracker over the given store. ttl is the
// session affinity window; events arriving after it starts a fresh session.
func NewTracker(store *storage.Store, ttl time.Duration, logger *slog.Logger) (*Tracker, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     32 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("sessions: failed to create cache: %w", err)
	}

	return &Tracker{
		cache: cache,
		store: store,
		ttl:   ttl,
		log:   logger.With(slog.String("component", "sessions")),
	}, nil
}

// Close releases the affinity cache.
func (t *Tracker) Close() {
	t.cache.Close()
}

// Wait blocks until pending cache writes are applied. Intended for tests.
func (t *Tracker) Wait() {
	t.cache.Wait()
}

func cacheKey(siteID, sessionID string) string {
	return siteID + ":" + sessionID
}

// Track applies one event to its session and returns the session's state
// after the event. The returned session has already been upserted to the
// durable store.
func (t *Tracker) Track(in TrackInput) (*Session, error) {
	key := cacheKey(in.SiteID, in.SessionID)

	var session *Session
	if cached, ok := t.cache.Get(key); ok {
		session = t.extend(cached.(*Session), in)
	} else {
		session = t.start(in)
	}

	pk, sk := storage.SessionKey(in.SiteID, in.SessionID)
	if err := t.store.Put(pk, sk, session); err != nil {
		return nil, fmt.Errorf("sessions: failed to upsert session %s: %w", in.SessionID, err)
	}

	t.cache.SetWithTTL(key, session, 1, t.ttl)
	return session, nil
}

// start creates a fresh session from its first event.
func (t *Tracker) start(in TrackInput) *Session {
	session := &Session{
		ID:             in.SessionID,
		SiteID:         in.SiteID,
		VisitorID:      in.VisitorID,
		EntryPath:      in.Path,
		ExitPath:       in.Path,
		Referrer:       in.Referrer,
		ReferrerSource: in.ReferrerSource,
		DeviceType:     in.DeviceType,
		Browser:        in.Browser,
		OS:             in.OS,
		IsBounce:       true,
		DurationMS:     0,
		StartedAt:      in.Timestamp,
		EndedAt:        in.Timestamp,
	}

	switch in.EventType {
	case normalizer.EventTypePageView:
		session.PageViews = 1
	case normalizer.EventTypeCustom, normalizer.EventTypeOutbound:
		session.Events = 1
	}

	t.log.Debug("Started session",
		slog.String("site_id", in.SiteID),
		slog.String("session_id", in.SessionID))
	return session
}

// extend mutates a copy of an active session with a subsequent event. The
// cached value is never mutated in place; the fresh copy replaces it.
func (t *Tracker) extend(current *Session, in TrackInput) *Session {
	session := *current

	switch in.EventType {
	case normalizer.EventTypePageView:
		session.PageViews++
		session.ExitPath = in.Path
		if session.PageViews > 1 {
			// permanently false once a second page view lands
			session.IsBounce = false
		}
	case normalizer.EventTypeCustom, normalizer.EventTypeOutbound:
		session.Events++
	}

	session.DurationMS = in.Timestamp.Sub(session.StartedAt).Milliseconds()
	session.EndedAt = in.Timestamp
	return &session
}

// Get reads a session's durable record.
func (t *Tracker) Get(siteID, sessionID string) (*Session, error) {
	pk, sk := storage.SessionKey(siteID, sessionID)
	var session Session
	if err := t.store.Get(pk, sk, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
