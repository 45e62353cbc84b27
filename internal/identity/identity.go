// Package identity derives privacy-rotating visitor fingerprints and
// classifies traffic that should not be tracked. IP addresses are never
// stored, only hashed.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// defaultSaltPrefix is used when no prefix is configured.
const defaultSaltPrefix = "visitra"

// DailySalt returns the hashing salt for the UTC calendar date of t. The
// salt is purely a function of the date, so fingerprints rotate at midnight
// UTC and cross-day correlation of the same visitor is not possible.
func DailySalt(t time.Time) string {
	return DailySaltWithPrefix(defaultSaltPrefix, t)
}

// DailySaltWithPrefix is DailySalt with a deployment-specific prefix, so
// separate installations never share fingerprint spaces.
func DailySaltWithPrefix(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = defaultSaltPrefix
	}
	return fmt.Sprintf("%s-%s", prefix, t.UTC().Format("2006-01-02"))
}

// HashVisitorID builds the pseudonymous visitor fingerprint: a SHA-256 hash
// over the pipe-joined inputs, as 64 lowercase hex characters.
func HashVisitorID(ip, userAgent, siteID, salt string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", ip, userAgent, siteID, salt)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
