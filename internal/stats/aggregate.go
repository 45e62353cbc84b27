package stats

import (
	"time"

	"visitra/internal/events"
)

// BucketStat is the rollup of one bucket: raw view count plus the
// cardinality of distinct visitors and distinct sessions seen in it.
type BucketStat struct {
	Views    int `json:"views"`
	Visitors int `json:"visitors"`
	Sessions int `json:"sessions"`
}

// TimePoint is one entry of a plotted series.
type TimePoint struct {
	Date     string `json:"date"`
	Views    int    `json:"views"`
	Visitors int    `json:"visitors"`
	Sessions int    `json:"sessions"`
}

// bucketAccumulator tracks distinct ids while a bucket is being built.
type bucketAccumulator struct {
	views    int
	visitors map[string]struct{}
	sessions map[string]struct{}
}

// AggregateTimeSeries groups page views into the bucket each one falls in
// (by truncation) and counts views, distinct visitors and distinct
// sessions per bucket. Two page views by the same visitor in one bucket
// count as one visitor.
func AggregateTimeSeries(pageViews []events.PageView, p Period) map[string]BucketStat {
	acc := make(map[string]*bucketAccumulator)

	for _, pv := range pageViews {
		key := BucketKey(pv.Timestamp, p)
		bucket, ok := acc[key]
		if !ok {
			bucket = &bucketAccumulator{
				visitors: make(map[string]struct{}),
				sessions: make(map[string]struct{}),
			}
			acc[key] = bucket
		}
		bucket.views++
		if pv.VisitorID != "" {
			bucket.visitors[pv.VisitorID] = struct{}{}
		}
		if pv.SessionID != "" {
			bucket.sessions[pv.SessionID] = struct{}{}
		}
	}

	result := make(map[string]BucketStat, len(acc))
	for key, bucket := range acc {
		result[key] = BucketStat{
			Views:    bucket.views,
			Visitors: len(bucket.visitors),
			Sessions: len(bucket.sessions),
		}
	}
	return result
}

// FillMissingBuckets aligns an aggregation to the full generated bucket
// sequence, substituting zeroes for buckets with no data. The result has
// exactly one entry per bucket and is safe to plot directly.
func FillMissingBuckets(buckets []string, data map[string]BucketStat) []TimePoint {
	series := make([]TimePoint, len(buckets))
	for i, key := range buckets {
		stat := data[key] // zero value when absent
		series[i] = TimePoint{
			Date:     key,
			Views:    stat.Views,
			Visitors: stat.Visitors,
			Sessions: stat.Sessions,
		}
	}
	return series
}

// BuildTimeSeries is the full pipeline for a queried range: generate the
// canonical buckets, roll the page views up and fill the gaps.
func BuildTimeSeries(pageViews []events.PageView, start, end time.Time, p Period) []TimePoint {
	buckets := GenerateTimeBuckets(start, end, p)
	data := AggregateTimeSeries(pageViews, p)
	return FillMissingBuckets(buckets, data)
}
