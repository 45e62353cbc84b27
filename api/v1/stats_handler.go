package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitra/internal/goals"
	"visitra/internal/metrics"
	"visitra/internal/sites"
	"visitra/internal/stats"
)

// statsResponse is the dashboard-facing aggregation payload.
type statsResponse struct {
	SiteID    string             `json:"siteId"`
	Period    string             `json:"period"`
	Start     time.Time          `json:"start"`
	End       time.Time          `json:"end"`
	Series    []stats.TimePoint  `json:"series"`
	Totals    statsTotals        `json:"totals"`
	Countries []stats.LabelCount `json:"countries"`
	Referrers []stats.LabelCount `json:"referrers"`
}

type statsTotals struct {
	Views    int `json:"views"`
	Visitors int `json:"visitors"`
	Sessions int `json:"sessions"`
}

func (a *API) loadSite(c *fiber.Ctx) (*sites.Site, error) {
	site, err := a.Sites.Get(c.Params("id"))
	if err != nil {
		var notFound *sites.SiteNotFoundError
		if errors.As(err, &notFound) {
			return nil, c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Site not found",
				"code":  "SITE_NOT_FOUND",
			})
		}
		a.Logger.Error("Failed to load site", slog.Any("error", err))
		return nil, c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
			"code":  "INTERNAL_ERROR",
		})
	}
	return site, nil
}

// GetStatsHandler returns the gap-free time series plus country and
// referrer breakdowns for a site and date range. The bucket period is
// chosen from the range length unless overridden with ?period=.
func (a *API) GetStatsHandler(c *fiber.Ctx) error {
	site, err := a.loadSite(c)
	if site == nil {
		return err
	}

	start, end, err := stats.ParseDateRange(c.Query("start"), c.Query("end"), time.Now().UTC())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date range",
			"code":  "BAD_DATE_RANGE",
		})
	}

	period := stats.OptimalPeriod(end.Sub(start))
	if override := stats.Period(c.Query("period")); override != "" {
		if !override.Valid() {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid period",
				"code":  "BAD_PERIOD",
			})
		}
		period = override
	}

	series, err := a.Querier.TimeSeries(site.ID, start, end, period)
	if err != nil {
		a.Logger.Error("Stats query failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
			"code":  "STATS_ERROR",
		})
	}

	countries, err := a.Querier.CountryBreakdown(site.ID, start, end)
	if err != nil {
		a.Logger.Error("Country breakdown failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
			"code":  "STATS_ERROR",
		})
	}

	referrers, err := a.Querier.ReferrerBreakdown(site.ID, start, end)
	if err != nil {
		a.Logger.Error("Referrer breakdown failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
			"code":  "STATS_ERROR",
		})
	}

	totals := statsTotals{}
	for _, point := range series {
		totals.Views += point.Views
		totals.Visitors += point.Visitors
		totals.Sessions += point.Sessions
	}

	return c.JSON(statsResponse{
		SiteID:    site.ID,
		Period:    string(period),
		Start:     start,
		End:       end,
		Series:    series,
		Totals:    totals,
		Countries: countries,
		Referrers: referrers,
	})
}

// GetRealtimeHandler reports the distinct visitors active in the sliding
// realtime window.
func (a *API) GetRealtimeHandler(c *fiber.Ctx) error {
	site, err := a.loadSite(c)
	if site == nil {
		return err
	}

	active, err := a.Realtime.ActiveVisitors(site.ID, time.Now().UTC())
	if err != nil {
		a.Logger.Error("Realtime query failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute realtime visitors",
			"code":  "REALTIME_ERROR",
		})
	}

	return c.JSON(fiber.Map{
		"siteId":         site.ID,
		"activeVisitors": active,
	})
}

// GetConversionsHandler evaluates one goal over a date range: converting
// sessions, distinct visitors and the resulting conversion rate.
func (a *API) GetConversionsHandler(c *fiber.Ctx) error {
	site, err := a.loadSite(c)
	if site == nil {
		return err
	}

	goal, err := a.Goals.Get(site.ID, c.Params("goalID"))
	if err != nil {
		if errors.Is(err, goals.ErrGoalNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Goal not found",
				"code":  "GOAL_NOT_FOUND",
			})
		}
		a.Logger.Error("Failed to load goal", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
			"code":  "INTERNAL_ERROR",
		})
	}

	start, end, err := stats.ParseDateRange(c.Query("start"), c.Query("end"), time.Now().UTC())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date range",
			"code":  "BAD_DATE_RANGE",
		})
	}

	pageViews, err := a.Querier.PageViewsInRange(site.ID, start, end)
	if err != nil {
		a.Logger.Error("Conversion query failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute conversions",
			"code":  "CONVERSIONS_ERROR",
		})
	}
	sessionRecords, err := a.Querier.SessionsForSite(site.ID, start, end)
	if err != nil {
		a.Logger.Error("Conversion query failed", slog.String("site_id", site.ID), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute conversions",
			"code":  "CONVERSIONS_ERROR",
		})
	}

	conversions := goals.CountConversions(*goal, pageViews, sessionRecords)

	visitors := make(map[string]struct{})
	for _, pv := range pageViews {
		visitors[pv.VisitorID] = struct{}{}
	}

	return c.JSON(fiber.Map{
		"siteId":         site.ID,
		"goalId":         goal.ID,
		"goalName":       goal.Name,
		"conversions":    conversions,
		"visitors":       len(visitors),
		"conversionRate": metrics.ConversionRate(conversions, len(visitors)),
	})
}
