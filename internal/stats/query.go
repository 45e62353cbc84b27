package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"visitra/internal/events"
	"visitra/internal/geo"
	"visitra/internal/sessions"
	"visitra/internal/storage"
)

// Querier answers aggregation queries from persisted page views. Queries
// are read-only range scans; they have no write concurrency concerns.
type Querier struct {
	store *storage.Store
	log   *slog.Logger
}

// NewQuerier creates a query layer over the store.
func NewQuerier(store *storage.Store, logger *slog.Logger) *Querier {
	return &Querier{
		store: store,
		log:   logger.With(slog.String("component", "stats")),
	}
}

// PageViewsInRange reads all page view records of a site within [start, end]
// in chronological order.
func (q *Querier) PageViewsInRange(siteID string, start, end time.Time) ([]events.PageView, error) {
	pk, _ := storage.SiteKey(siteID)
	skLow, skHigh := storage.PageViewRange(start, end)

	var pageViews []events.PageView
	err := q.store.QueryRange(pk, skLow, skHigh, func(sk string, value []byte) error {
		var pv events.PageView
		if err := json.Unmarshal(value, &pv); err != nil {
			return fmt.Errorf("bad page view record at %s: %w", sk, err)
		}
		pageViews = append(pageViews, pv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: failed to read page views for %s: %w", siteID, err)
	}
	return pageViews, nil
}

// SessionsForSite reads all session records of a site. Sessions are keyed
// by id, not time, so range filtering happens on StartedAt after the scan.
func (q *Querier) SessionsForSite(siteID string, start, end time.Time) ([]sessions.Session, error) {
	pk, _ := storage.SiteKey(siteID)

	var matched []sessions.Session
	err := q.store.QueryPrefix(pk, storage.SessionScanPrefix(), func(sk string, value []byte) error {
		var s sessions.Session
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("bad session record at %s: %w", sk, err)
		}
		if s.StartedAt.Before(start) || s.StartedAt.After(end) {
			return nil
		}
		matched = append(matched, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: failed to read sessions for %s: %w", siteID, err)
	}
	return matched, nil
}

// TimeSeries builds the gap-free bucket series for a site and range.
func (q *Querier) TimeSeries(siteID string, start, end time.Time, p Period) ([]TimePoint, error) {
	pageViews, err := q.PageViewsInRange(siteID, start, end)
	if err != nil {
		return nil, err
	}
	return BuildTimeSeries(pageViews, start, end, p), nil
}

// LabelCount is one entry of a breakdown (country, referrer source, ...).
type LabelCount struct {
	Label    string `json:"label"`
	Visitors int    `json:"visitors"`
}

// CountryBreakdown counts distinct visitors per country over a range,
// resolving ISO codes to display names, ordered by visitors descending.
func (q *Querier) CountryBreakdown(siteID string, start, end time.Time) ([]LabelCount, error) {
	pageViews, err := q.PageViewsInRange(siteID, start, end)
	if err != nil {
		return nil, err
	}

	visitorsByCountry := make(map[string]map[string]struct{})
	for _, pv := range pageViews {
		if pv.Country == "" {
			continue
		}
		set, ok := visitorsByCountry[pv.Country]
		if !ok {
			set = make(map[string]struct{})
			visitorsByCountry[pv.Country] = set
		}
		set[pv.VisitorID] = struct{}{}
	}

	breakdown := make([]LabelCount, 0, len(visitorsByCountry))
	for iso, visitors := range visitorsByCountry {
		breakdown = append(breakdown, LabelCount{
			Label:    geo.CountryName(iso),
			Visitors: len(visitors),
		})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Visitors != breakdown[j].Visitors {
			return breakdown[i].Visitors > breakdown[j].Visitors
		}
		return breakdown[i].Label < breakdown[j].Label
	})
	return breakdown, nil
}

// ReferrerBreakdown counts distinct visitors per referrer source over a
// range, ordered by visitors descending.
func (q *Querier) ReferrerBreakdown(siteID string, start, end time.Time) ([]LabelCount, error) {
	pageViews, err := q.PageViewsInRange(siteID, start, end)
	if err != nil {
		return nil, err
	}

	visitorsBySource := make(map[string]map[string]struct{})
	for _, pv := range pageViews {
		source := pv.ReferrerSource
		if source == "" {
			continue
		}
		set, ok := visitorsBySource[source]
		if !ok {
			set = make(map[string]struct{})
			visitorsBySource[source] = set
		}
		set[pv.VisitorID] = struct{}{}
	}

	breakdown := make([]LabelCount, 0, len(visitorsBySource))
	for source, visitors := range visitorsBySource {
		breakdown = append(breakdown, LabelCount{Label: source, Visitors: len(visitors)})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Visitors != breakdown[j].Visitors {
			return breakdown[i].Visitors > breakdown[j].Visitors
		}
		return breakdown[i].Label < breakdown[j].Label
	})
	return breakdown, nil
}
