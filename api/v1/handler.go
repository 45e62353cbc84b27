package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitra/internal/events"
	"visitra/internal/goals"
	"visitra/internal/normalizer"
	"visitra/internal/sites"
	"visitra/internal/stats"
)

const (
	msgEventAdded     = "Event added successfully"
	errInvalidRequest = "Invalid request"
	errInvalidOrigin  = "Invalid origin"
)

// API holds the dependencies of the v1 handlers.
type API struct {
	Collector *events.Collector
	Sites     *sites.Repository
	Goals     *goals.Repository
	Querier   *stats.Querier
	Realtime  *stats.Realtime
	Logger    *slog.Logger
}

// CreateEventHandler ingests one tracking event. Privacy-signal and bot
// traffic is acknowledged without being stored, so clients cannot tell
// whether their event was kept.
func (a *API) CreateEventHandler(c *fiber.Ctx) error {
	var payload normalizer.CollectPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "BAD_PAYLOAD",
		})
	}

	site, err := a.Sites.Get(payload.SiteID)
	if err != nil {
		var notFound *sites.SiteNotFoundError
		if errors.As(err, &notFound) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Site not found - please register your domain first",
				"code":  "SITE_NOT_FOUND",
			})
		}
		a.Logger.Error("Failed to load site", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect event",
			"code":  "COLLECTION_ERROR",
		})
	}
	if !site.Active {
		// Paused sites acknowledge and drop, same as privacy signals.
		return c.Status(http.StatusAccepted).JSON(fiber.Map{
			"message": msgEventAdded,
			"status":  http.StatusAccepted,
		})
	}

	if err := validateOrigin(c, site, a.Logger); err != nil {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error": errInvalidOrigin,
			"code":  "INVALID_ORIGIN",
		})
	}

	userAgent := c.Get("User-Agent")
	if forwardedUA := c.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	result, err := a.Collector.Collect(events.CollectInput{
		Payload:   payload,
		IP:        getClientIP(c),
		UserAgent: userAgent,
		Headers: map[string]string{
			"dnt":     c.Get("DNT"),
			"sec-gpc": c.Get("Sec-GPC"),
		},
		CDNCountry: c.Get("CF-IPCountry"),
		Timestamp:  time.Now(),
	})
	if err != nil {
		a.Logger.Error("Failed to collect event", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to collect event",
			"code":  "COLLECTION_ERROR",
		})
	}

	if result.Outcome == events.OutcomeInvalid {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  errInvalidRequest,
			"code":   "VALIDATION_ERROR",
			"errors": result.Errors,
		})
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgEventAdded,
		"status":  http.StatusAccepted,
	})
}

// validateOrigin checks that the request's Origin header (or Referer as a
// fallback) belongs to one of the site's registered domains. The Origin
// header is set by the browser and cannot be spoofed by JavaScript.
func validateOrigin(c *fiber.Ctx, site *sites.Site, logger *slog.Logger) error {
	origin := c.Get("Origin")
	if origin == "" {
		origin = c.Get("Referer")
	}
	if origin == "" {
		logger.Debug("No Origin or Referer header present")
		return fiber.NewError(http.StatusForbidden, errInvalidOrigin)
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		logger.Debug("Unparseable origin", slog.String("origin", origin))
		return fiber.NewError(http.StatusForbidden, errInvalidOrigin)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || host == "127.0.0.1" {
		return nil
	}
	if !site.HasDomain(host) {
		logger.Debug("Origin does not match site domains",
			slog.String("origin_host", host),
			slog.String("site_id", site.ID))
		return fiber.NewError(http.StatusForbidden, errInvalidOrigin)
	}
	return nil
}
