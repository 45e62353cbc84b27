package v1

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"visitra/internal/sites"
)

type createSiteParams struct {
	Name     string   `json:"name"`
	Domains  []string `json:"domains"`
	Timezone string   `json:"timezone"`
	OwnerID  string   `json:"ownerId"`
}

// CreateSiteHandler registers a new site for tracking.
func (a *API) CreateSiteHandler(c *fiber.Ctx) error {
	var params createSiteParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
			"code":  "BAD_PAYLOAD",
		})
	}

	site, err := a.Sites.Create(sites.CreateInput{
		Name:     params.Name,
		Domains:  params.Domains,
		Timezone: params.Timezone,
		OwnerID:  params.OwnerID,
	})
	if err != nil {
		a.Logger.Debug("Site creation rejected", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "INVALID_SITE",
		})
	}

	return c.Status(http.StatusCreated).JSON(site)
}

// GetSiteHandler returns one site by id.
func (a *API) GetSiteHandler(c *fiber.Ctx) error {
	site, err := a.loadSite(c)
	if site == nil {
		return err
	}
	return c.JSON(site)
}

// ListSitesHandler lists the sites of an owner via the owner index.
func (a *API) ListSitesHandler(c *fiber.Ctx) error {
	ownerID := c.Query("ownerId")
	if ownerID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "ownerId is required",
			"code":  "MISSING_OWNER",
		})
	}

	listed, err := a.Sites.ListByOwner(ownerID)
	if err != nil {
		a.Logger.Error("Failed to list sites", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list sites",
			"code":  "INTERNAL_ERROR",
		})
	}
	if listed == nil {
		listed = []sites.Site{}
	}
	return c.JSON(listed)
}
