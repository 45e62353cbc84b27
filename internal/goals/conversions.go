package goals

import (
	"visitra/internal/events"
	"visitra/internal/sessions"
)

// CountConversions counts the distinct sessions that satisfy a goal, given
// the page views and sessions already read for the queried range. Pageview
// and event goals are evaluated against individual page view records;
// duration goals against the session records themselves.
func CountConversions(g Goal, pageViews []events.PageView, sessionRecords []sessions.Session) int {
	if !g.Active {
		return 0
	}

	converted := make(map[string]struct{})
	switch g.Type {
	case GoalPageView, GoalEvent:
		for _, pv := range pageViews {
			ctx := EventContext{Path: pv.Path, EventName: pv.EventName}
			if MatchGoal(g, ctx) {
				converted[pv.SessionID] = struct{}{}
			}
		}
	case GoalDuration:
		for _, s := range sessionRecords {
			minutes := float64(s.DurationMS) / 60000
			ctx := EventContext{SessionDurationMinutes: &minutes}
			if MatchGoal(g, ctx) {
				converted[s.ID] = struct{}{}
			}
		}
	}
	return len(converted)
}
