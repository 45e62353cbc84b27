// Package stats turns raw page views into gap-free, time-bucketed series:
// canonical bucket generation, rollup with distinct visitor/session counts,
// and zero-filling for direct plotting.
package stats

import (
	"fmt"
	"time"
)

// Period is the bucket granularity of a stats series.
type Period string

const (
	PeriodMinute Period = "minute"
	PeriodHour   Period = "hour"
	PeriodDay    Period = "day"
	PeriodMonth  Period = "month"
)

// minuteStep is the width of a minute-period bucket.
const minuteStep = 5 * time.Minute

// Canonical bucket key layouts per period.
const (
	minuteKeyLayout = "2006-01-02T15:04:05"
	hourKeyLayout   = "2006-01-02T15:00:00"
	dayKeyLayout    = "2006-01-02"
	monthKeyLayout  = "2006-01"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodMinute, PeriodHour, PeriodDay, PeriodMonth:
		return true
	}
	return false
}

// OptimalPeriod picks the display granularity for a queried range: an hour
// or less is plotted per minute, up to a day per hour, anything longer per
// day.
func OptimalPeriod(span time.Duration) Period {
	switch {
	case span <= time.Hour:
		return PeriodMinute
	case span <= 24*time.Hour:
		return PeriodHour
	default:
		return PeriodDay
	}
}

// OptimalStoragePeriod is the server-side variant of OptimalPeriod: ranges
// longer than 90 days roll up monthly.
func OptimalStoragePeriod(span time.Duration) Period {
	if span > 90*24*time.Hour {
		return PeriodMonth
	}
	return OptimalPeriod(span)
}

// TruncateToBucket truncates a timestamp to the start of the bucket that
// contains it. Minute buckets align to the preceding 5-minute boundary.
func TruncateToBucket(t time.Time, p Period) time.Time {
	utc := t.UTC()
	year, month, day := utc.Year(), utc.Month(), utc.Day()

	switch p {
	case PeriodMinute:
		minute := utc.Minute() - utc.Minute()%5
		return time.Date(year, month, day, utc.Hour(), minute, 0, 0, time.UTC)
	case PeriodHour:
		return time.Date(year, month, day, utc.Hour(), 0, 0, 0, time.UTC)
	case PeriodDay:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case PeriodMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	default:
		return utc
	}
}

// BucketKey formats a timestamp as the canonical bucket key of its period.
func BucketKey(t time.Time, p Period) string {
	truncated := TruncateToBucket(t, p)
	switch p {
	case PeriodMinute:
		return truncated.Format(minuteKeyLayout)
	case PeriodHour:
		return truncated.Format(hourKeyLayout)
	case PeriodDay:
		return truncated.Format(dayKeyLayout)
	case PeriodMonth:
		return truncated.Format(monthKeyLayout)
	default:
		return truncated.Format(time.RFC3339)
	}
}

// nextBucket advances a bucket start by exactly one period unit.
func nextBucket(t time.Time, p Period) time.Time {
	switch p {
	case PeriodMinute:
		return t.Add(minuteStep)
	case PeriodHour:
		return t.Add(time.Hour)
	case PeriodDay:
		return t.AddDate(0, 0, 1)
	case PeriodMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.Add(time.Hour)
	}
}

// GenerateTimeBuckets produces the ordered sequence of canonical bucket
// keys covering [start, end] inclusive, one per period unit, with no gaps
// and no duplicates. Bucket starts are mutually exclusive and collectively
// exhaustive over the range: every timestamp in it maps to exactly one of
// the returned buckets.
func GenerateTimeBuckets(start, end time.Time, p Period) []string {
	if end.Before(start) {
		start, end = end, start
	}

	var buckets []string
	last := TruncateToBucket(end, p)
	for cur := TruncateToBucket(start, p); !cur.After(last); cur = nextBucket(cur, p) {
		buckets = append(buckets, BucketKey(cur, p))
	}
	return buckets
}

// ParseDateRange resolves the query's time range. Missing bounds default to
// the trailing 30 days ending now; a start after its end is swapped rather
// than rejected.
func ParseDateRange(startStr, endStr string, now time.Time) (start, end time.Time, err error) {
	end = now
	start = now.AddDate(0, 0, -30)

	if endStr != "" {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("stats: invalid end date %q: %w", endStr, err)
		}
	}
	if startStr != "" {
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("stats: invalid start date %q: %w", startStr, err)
		}
	}

	if start.After(end) {
		start, end = end, start
	}
	return start, end, nil
}
