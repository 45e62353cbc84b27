package normalizer

import (
	"fmt"
	"net/url"
)

// EventType is the closed set of collection event kinds.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypePageView
	EventTypeCustom
	EventTypeOutbound
)

// Wire values accepted on the collection endpoint.
const (
	eventTypePageViewWire = "pageview"
	eventTypeCustomWire   = "event"
	eventTypeOutboundWire = "outbound"
)

// ParseEventType maps a wire string to its EventType. Unrecognized values
// map to EventTypeUnknown.
func ParseEventType(s string) EventType {
	switch s {
	case eventTypePageViewWire:
		return EventTypePageView
	case eventTypeCustomWire:
		return EventTypeCustom
	case eventTypeOutboundWire:
		return EventTypeOutbound
	default:
		return EventTypeUnknown
	}
}

// String returns the wire representation of an EventType.
func (t EventType) String() string {
	switch t {
	case EventTypePageView:
		return eventTypePageViewWire
	case EventTypeCustom:
		return eventTypeCustomWire
	case EventTypeOutbound:
		return eventTypeOutboundWire
	default:
		return "unknown"
	}
}

// CollectPayload is the body of a collection request.
type CollectPayload struct {
	SiteID       string                 `json:"siteId"`
	SessionID    string                 `json:"sessionId"`
	EventType    string                 `json:"eventType"`
	URL          string                 `json:"url"`
	Referrer     string                 `json:"referrer,omitempty"`
	Title        string                 `json:"title,omitempty"`
	ScreenWidth  int                    `json:"screenWidth,omitempty"`
	ScreenHeight int                    `json:"screenHeight,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Value        float64                `json:"value,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// ValidationResult reports whether a payload is acceptable, with
// human-readable messages for each failure.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateCollectPayload checks the required collection fields. It reports
// problems as values and never returns an error.
func ValidateCollectPayload(p CollectPayload) ValidationResult {
	var errs []string

	if p.SiteID == "" {
		errs = append(errs, "siteId is required")
	}
	if p.EventType == "" {
		errs = append(errs, "eventType is required")
	} else if ParseEventType(p.EventType) == EventTypeUnknown {
		errs = append(errs, fmt.Sprintf("eventType %q is not one of pageview, event, outbound", p.EventType))
	}
	if p.URL == "" {
		errs = append(errs, "url is required")
	} else if parsed, err := url.Parse(p.URL); err != nil || parsed.Hostname() == "" {
		errs = append(errs, fmt.Sprintf("url %q is not a valid URL", p.URL))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
