package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"visitra/internal/config"
	"visitra/internal/geo"
	"visitra/internal/identity"
	"visitra/internal/normalizer"
	"visitra/internal/sessions"
	"visitra/internal/storage"
)

// RealtimeRecorder receives accepted page views for the active-visitor
// window.
type RealtimeRecorder interface {
	RecordVisit(siteID, visitorID string, ts time.Time) error
}

// Outcome classifies what the collector did with a submission.
type Outcome int

const (
	// OutcomeStored means the event was persisted.
	OutcomeStored Outcome = iota
	// OutcomeSkipped means the event was silently dropped (privacy signal
	// or bot traffic). Skipping is a success from the caller's side.
	OutcomeSkipped
	// OutcomeInvalid means the payload failed validation; nothing was
	// written.
	OutcomeInvalid
)

// Result reports the outcome of one collection request.
type Result struct {
	Outcome    Outcome
	Errors     []string
	SkipReason string
	PageView   *PageView
	Session    *sessions.Session
}

// CollectInput is one raw submission plus its request metadata.
type CollectInput struct {
	Payload    normalizer.CollectPayload
	IP         string
	UserAgent  string
	Headers    map[string]string
	CDNCountry string
	Timestamp  time.Time
}

// Collector runs the ingestion pipeline for one event at a time. It is
// stateless between calls and safe for concurrent use.
type Collector struct {
	store      *storage.Store
	tracker    *sessions.Tracker
	realtime   RealtimeRecorder
	saltPrefix string
	log        *slog.Logger
}

// NewCollector wires the pipeline. realtime may be nil when no active
// visitor window is kept.
func NewCollector(store *storage.Store, tracker *sessions.Tracker, realtime RealtimeRecorder, logger *slog.Logger) *Collector {
	return &Collector{
		store:      store,
		tracker:    tracker,
		realtime:   realtime,
		saltPrefix: config.GetConfig().SaltPrefix,
		log:        logger.With(slog.String("component", "collector")),
	}
}

// Collect validates, normalizes and persists one event. Privacy signals and
// bot traffic are dropped without error; validation failures are reported
// without any partial write.
func (c *Collector) Collect(in CollectInput) (*Result, error) {
	validation := normalizer.ValidateCollectPayload(in.Payload)
	if !validation.Valid {
		return &Result{Outcome: OutcomeInvalid, Errors: validation.Errors}, nil
	}

	if !identity.ShouldTrack(in.Headers) {
		return &Result{Outcome: OutcomeSkipped, SkipReason: "privacy signal"}, nil
	}
	if identity.IsBot(in.UserAgent) {
		return &Result{Outcome: OutcomeSkipped, SkipReason: "bot user agent"}, nil
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	eventType := normalizer.ParseEventType(in.Payload.EventType)
	agent := normalizer.ParseUserAgent(in.UserAgent)
	path := normalizer.ExtractPath(in.Payload.URL, false, false)
	hostname := normalizer.ExtractHostname(in.Payload.URL)
	referrerSource := normalizer.ParseReferrerSource(in.Payload.Referrer)
	utm := normalizer.ParseUTMParams(in.Payload.URL)

	ip := in.IP
	if ip == "" {
		ip = identity.UnknownIP
	}
	salt := identity.DailySaltWithPrefix(c.saltPrefix, ts)
	visitorID := identity.HashVisitorID(ip, in.UserAgent, in.Payload.SiteID, salt)
	country := geo.CountryFromRequest(in.CDNCountry, ip)

	session, err := c.tracker.Track(sessions.TrackInput{
		SiteID:         in.Payload.SiteID,
		SessionID:      in.Payload.SessionID,
		VisitorID:      visitorID,
		Path:           path,
		Referrer:       in.Payload.Referrer,
		ReferrerSource: referrerSource,
		DeviceType:     agent.DeviceType,
		Browser:        agent.Browser,
		OS:             agent.OS,
		EventType:      eventType,
		Timestamp:      ts,
	})
	if err != nil {
		return nil, fmt.Errorf("events: session tracking failed: %w", err)
	}

	pageView := PageView{
		ID:             ulid.Make().String(),
		SiteID:         in.Payload.SiteID,
		VisitorID:      visitorID,
		SessionID:      session.ID,
		Path:           path,
		Hostname:       hostname,
		Title:          in.Payload.Title,
		Referrer:       in.Payload.Referrer,
		ReferrerSource: referrerSource,
		UTM:            utm,
		EventType:      eventType.String(),
		EventName:      in.Payload.Name,
		DeviceType:     agent.DeviceType,
		Browser:        agent.Browser,
		OS:             agent.OS,
		Country:        country,
		ScreenWidth:    in.Payload.ScreenWidth,
		ScreenHeight:   in.Payload.ScreenHeight,
		IsUnique:       session.PageViews+session.Events == 1,
		IsBounce:       session.IsBounce,
		Timestamp:      ts,
	}

	pk, sk := storage.PageViewKey(pageView.SiteID, pageView.Timestamp, pageView.ID)
	if err := c.store.Put(pk, sk, pageView); err != nil {
		return nil, fmt.Errorf("events: failed to persist page view: %w", err)
	}

	if c.realtime != nil && eventType == normalizer.EventTypePageView {
		if err := c.realtime.RecordVisit(pageView.SiteID, visitorID, ts); err != nil {
			// Realtime is an approximation layer; a failed slot write must
			// not reject an already persisted event.
			c.log.Error("Failed to record realtime visit",
				slog.String("site_id", pageView.SiteID),
				slog.Any("error", err))
		}
	}

	c.log.Debug("Collected event",
		slog.String("site_id", pageView.SiteID),
		slog.String("event_type", pageView.EventType),
		slog.String("path", pageView.Path))
	return &Result{Outcome: OutcomeStored, PageView: &pageView, Session: session}, nil
}
