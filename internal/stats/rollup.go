package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"visitra/internal/storage"
)

// StatsBucket is the persisted rollup of one bucket. Derived data,
// recomputable from page view records at any time; never hand-edited.
type StatsBucket struct {
	SiteID    string `json:"siteId"`
	Period    string `json:"period"`
	BucketKey string `json:"bucketKey"`
	Views     int    `json:"views"`
	Visitors  int    `json:"visitors"`
	Sessions  int    `json:"sessions"`
}

// Rollup recomputes and persists the stats buckets of a site for a range at
// the given period. Existing buckets in the range are overwritten; gaps are
// written as zero buckets so a later prefix scan needs no fill step.
func (q *Querier) Rollup(siteID string, start, end time.Time, p Period) error {
	series, err := q.TimeSeries(siteID, start, end, p)
	if err != nil {
		return fmt.Errorf("stats: rollup aggregation failed for %s: %w", siteID, err)
	}

	for _, point := range series {
		bucket := StatsBucket{
			SiteID:    siteID,
			Period:    string(p),
			BucketKey: point.Date,
			Views:     point.Views,
			Visitors:  point.Visitors,
			Sessions:  point.Sessions,
		}
		pk, sk := storage.StatsKey(siteID, string(p), point.Date)
		if err := q.store.Put(pk, sk, bucket); err != nil {
			return fmt.Errorf("stats: failed to persist bucket %s: %w", point.Date, err)
		}
	}

	q.log.Debug("Rolled up stats buckets",
		slog.String("site_id", siteID),
		slog.String("period", string(p)),
		slog.Int("buckets", len(series)))
	return nil
}

// ReadBuckets returns a site's persisted buckets for one period, in bucket
// order.
func (q *Querier) ReadBuckets(siteID string, p Period) ([]StatsBucket, error) {
	pk, _ := storage.SiteKey(siteID)

	var buckets []StatsBucket
	err := q.store.QueryPrefix(pk, storage.StatsPrefix(string(p)), func(sk string, value []byte) error {
		var bucket StatsBucket
		if err := json.Unmarshal(value, &bucket); err != nil {
			return fmt.Errorf("bad stats bucket at %s: %w", sk, err)
		}
		buckets = append(buckets, bucket)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats: failed to read %s buckets for %s: %w", p, siteID, err)
	}
	return buckets, nil
}
