// Package storage provides the partition-key/sort-key store the analytics
// engine persists into, backed by Badger, plus the deterministic key
// encodings for every entity type. Encoders are pure functions and every
// encoder has a decoder that round-trips it.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Sort-key timestamp layout. A fixed-width UTC format keeps lexicographic
// order identical to chronological order.
const sortKeyTimeLayout = "2006-01-02T15:04:05Z"

// Key prefixes of the single-table layout.
const (
	sitePrefix     = "SITE#"
	ownerPrefix    = "OWNER#"
	pageViewPrefix = "PV#"
	sessionPrefix  = "SESSION#"
	statsPrefix    = "STATS#"
	realtimePrefix = "RT#"
	goalPrefix     = "GOAL#"

	siteMetaSortKey = "META"
)

// SiteKey returns the primary key pair for a site record.
func SiteKey(siteID string) (pk, sk string) {
	return sitePrefix + siteID, siteMetaSortKey
}

// SiteScanKeys returns the partition prefix and sort key that enumerate
// every site record via ScanPartitions.
func SiteScanKeys() (pkPrefix, sk string) {
	return sitePrefix, siteMetaSortKey
}

// OwnerIndexKey returns the secondary-index key pair that lists sites by
// owner.
func OwnerIndexKey(ownerID, siteID string) (pk, sk string) {
	return ownerPrefix + ownerID, sitePrefix + siteID
}

// ParseOwnerIndexSortKey extracts the site id from an owner-index sort key.
func ParseOwnerIndexSortKey(sk string) (siteID string, err error) {
	if !strings.HasPrefix(sk, sitePrefix) {
		return "", fmt.Errorf("storage: not an owner-index sort key: %q", sk)
	}
	return strings.TrimPrefix(sk, sitePrefix), nil
}

// PageViewKey returns the key pair for a page view. The sort key is the
// event timestamp concatenated with the page view id, so a partition scan
// is chronological and keys stay unique within a partition.
func PageViewKey(siteID string, ts time.Time, pageViewID string) (pk, sk string) {
	return sitePrefix + siteID, pageViewPrefix + ts.UTC().Format(sortKeyTimeLayout) + "#" + pageViewID
}

// ParsePageViewSortKey decodes a page view sort key back into its timestamp
// and id.
func ParsePageViewSortKey(sk string) (ts time.Time, pageViewID string, err error) {
	if !strings.HasPrefix(sk, pageViewPrefix) {
		return time.Time{}, "", fmt.Errorf("storage: not a page view sort key: %q", sk)
	}
	rest := strings.TrimPrefix(sk, pageViewPrefix)
	sep := strings.Index(rest, "#")
	if sep < 0 {
		return time.Time{}, "", fmt.Errorf("storage: malformed page view sort key: %q", sk)
	}
	ts, err = time.Parse(sortKeyTimeLayout, rest[:sep])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("storage: bad timestamp in page view sort key %q: %w", sk, err)
	}
	return ts, rest[sep+1:], nil
}

// PageViewRange returns the sort-key bounds covering [start, end] for a
// partition range query over page views. The high bound is suffixed past
// any id that could share the end timestamp.
func PageViewRange(start, end time.Time) (skLow, skHigh string) {
	skLow = pageViewPrefix + start.UTC().Format(sortKeyTimeLayout)
	skHigh = pageViewPrefix + end.UTC().Format(sortKeyTimeLayout) + "#\xff"
	return skLow, skHigh
}

// SessionKey returns the key pair for a session record.
func SessionKey(siteID, sessionID string) (pk, sk string) {
	return sitePrefix + siteID, sessionPrefix + sessionID
}

// SessionScanPrefix returns the sort-key prefix listing a site's sessions.
func SessionScanPrefix() string {
	return sessionPrefix
}

// ParseSessionSortKey extracts the session id from a session sort key.
func ParseSessionSortKey(sk string) (sessionID string, err error) {
	if !strings.HasPrefix(sk, sessionPrefix) {
		return "", fmt.Errorf("storage: not a session sort key: %q", sk)
	}
	return strings.TrimPrefix(sk, sessionPrefix), nil
}

// StatsKey returns the key pair for a stats bucket. Embedding the period and
// the canonical bucket key in the sort key makes a range query over one
// period a plain prefix scan.
func StatsKey(siteID, period, bucketKey string) (pk, sk string) {
	return sitePrefix + siteID, statsPrefix + strings.ToUpper(period) + "#" + bucketKey
}

// StatsPrefix returns the sort-key prefix for all buckets of one period.
func StatsPrefix(period string) string {
	return statsPrefix + strings.ToUpper(period) + "#"
}

// ParseStatsSortKey decodes a stats sort key into its period and bucket key.
func ParseStatsSortKey(sk string) (period, bucketKey string, err error) {
	if !strings.HasPrefix(sk, statsPrefix) {
		return "", "", fmt.Errorf("storage: not a stats sort key: %q", sk)
	}
	rest := strings.TrimPrefix(sk, statsPrefix)
	sep := strings.Index(rest, "#")
	if sep < 0 {
		return "", "", fmt.Errorf("storage: malformed stats sort key: %q", sk)
	}
	return strings.ToLower(rest[:sep]), rest[sep+1:], nil
}

// GoalKey returns the key pair for a goal definition record.
func GoalKey(siteID, goalID string) (pk, sk string) {
	return sitePrefix + siteID, goalPrefix + goalID
}

// GoalScanPrefix returns the sort-key prefix listing a site's goals.
func GoalScanPrefix() string {
	return goalPrefix
}

// ParseGoalSortKey extracts the goal id from a goal sort key.
func ParseGoalSortKey(sk string) (goalID string, err error) {
	if !strings.HasPrefix(sk, goalPrefix) {
		return "", fmt.Errorf("storage: not a goal sort key: %q", sk)
	}
	return strings.TrimPrefix(sk, goalPrefix), nil
}

// RealtimeKey returns the key pair for a realtime minute slot. The sort key
// is the timestamp truncated to the minute, so the sliding window is a
// short range scan.
func RealtimeKey(siteID string, minute time.Time) (pk, sk string) {
	return sitePrefix + siteID, realtimePrefix + minute.UTC().Truncate(time.Minute).Format(sortKeyTimeLayout)
}

// ParseRealtimeSortKey decodes a realtime sort key into its minute.
func ParseRealtimeSortKey(sk string) (minute time.Time, err error) {
	if !strings.HasPrefix(sk, realtimePrefix) {
		return time.Time{}, fmt.Errorf("storage: not a realtime sort key: %q", sk)
	}
	minute, err = time.Parse(sortKeyTimeLayout, strings.TrimPrefix(sk, realtimePrefix))
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: bad minute in realtime sort key %q: %w", sk, err)
	}
	return minute, nil
}

// RealtimeRange returns the sort-key bounds for the sliding window
// [from, to] at minute resolution.
func RealtimeRange(from, to time.Time) (skLow, skHigh string) {
	skLow = realtimePrefix + from.UTC().Truncate(time.Minute).Format(sortKeyTimeLayout)
	skHigh = realtimePrefix + to.UTC().Truncate(time.Minute).Format(sortKeyTimeLayout)
	return skLow, skHigh
}
