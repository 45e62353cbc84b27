// Package events implements the collection pipeline: validate, normalize,
// resolve identity, reconstruct the session and persist, all within one
// request.
package events

import (
	"time"

	"visitra/internal/normalizer"
)

// PageView is the immutable record of one page load (or custom/outbound
// event). Created once, never mutated.
type PageView struct {
	ID             string               `json:"id"`
	SiteID         string               `json:"siteId"`
	VisitorID      string               `json:"visitorId"`
	SessionID      string               `json:"sessionId"`
	Path           string               `json:"path"`
	Hostname       string               `json:"hostname"`
	Title          string               `json:"title,omitempty"`
	Referrer       string               `json:"referrer,omitempty"`
	ReferrerSource string               `json:"referrerSource,omitempty"`
	UTM            normalizer.UTMParams `json:"utm,omitempty"`
	EventType      string               `json:"eventType"`
	EventName      string               `json:"eventName,omitempty"`
	DeviceType     string               `json:"deviceType"`
	Browser        string               `json:"browser"`
	OS             string               `json:"os"`
	Country        string               `json:"country,omitempty"`
	ScreenWidth    int                  `json:"screenWidth,omitempty"`
	ScreenHeight   int                  `json:"screenHeight,omitempty"`
	IsUnique       bool                 `json:"isUnique"`
	IsBounce       bool                 `json:"isBounce"`
	Timestamp      time.Time            `json:"timestamp"`
}
