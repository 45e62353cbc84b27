package goals

import (
	"strings"
	"sync"

	"go.elara.ws/pcre"
)

// GoalType selects which field of an event context a goal is matched
// against.
type GoalType string

const (
	GoalPageView GoalType = "pageview"
	GoalEvent    GoalType = "event"
	GoalDuration GoalType = "duration"
)

// MatchType selects how a goal's pattern is compared.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// Goal is a conversion definition. Goals are managed elsewhere and consumed
// read-only here.
type Goal struct {
	ID              string    `json:"id"`
	SiteID          string    `json:"siteId"`
	Name            string    `json:"name"`
	Type            GoalType  `json:"type"`
	Pattern         string    `json:"pattern"`
	MatchType       MatchType `json:"matchType"`
	DurationMinutes float64   `json:"durationMinutes,omitempty"`
	Value           float64   `json:"value,omitempty"`
	Active          bool      `json:"active"`
}

// EventContext is the slice of an event a goal is evaluated against.
// SessionDurationMinutes is nil when the session duration is not known.
type EventContext struct {
	Path                   string
	EventName              string
	SessionDurationMinutes *float64
}

// Compiled regex cache shared by all matchers. Patterns come from goal
// definitions, so the set is small and stable.
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

var cache = &regexCache{compiled: make(map[string]*pcre.Regexp)}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	// Double-check pattern
	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// MatchPattern reports whether value satisfies pattern under the given
// match type. An empty pattern or value never matches. A regex pattern
// that fails to compile never matches and never panics.
func MatchPattern(pattern, value string, mt MatchType) bool {
	if pattern == "" || value == "" {
		return false
	}
	switch mt {
	case MatchExact:
		return pattern == value
	case MatchContains:
		return strings.Contains(value, pattern)
	case MatchRegex:
		regex, err := cache.get(pattern)
		if err != nil {
			return false
		}
		return regex.MatchString(value)
	default:
		return false
	}
}

// MatchGoal evaluates a goal against an event context. Inactive goals and
// unknown goal types never match.
func MatchGoal(g Goal, ctx EventContext) bool {
	if !g.Active {
		return false
	}
	switch g.Type {
	case GoalPageView:
		return MatchPattern(g.Pattern, ctx.Path, g.MatchType)
	case GoalEvent:
		if ctx.EventName == "" {
			return false
		}
		return MatchPattern(g.Pattern, ctx.EventName, g.MatchType)
	case GoalDuration:
		if ctx.SessionDurationMinutes == nil {
			return false
		}
		return *ctx.SessionDurationMinutes >= g.DurationMinutes
	default:
		return false
	}
}
