package sites

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"visitra/internal/storage"
)

// SiteNotFoundError represents an error when a site is not found
type SiteNotFoundError struct {
	SiteID string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found: %s", e.SiteID)
}

// NewSiteNotFoundError creates a new SiteNotFoundError
func NewSiteNotFoundError(siteID string) *SiteNotFoundError {
	return &SiteNotFoundError{SiteID: siteID}
}

// Site represents a tracked website
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domains   []string  `json:"domains"`
	Timezone  string    `json:"timezone"`
	OwnerID   string    `json:"ownerId"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasDomain reports whether the given request host belongs to the site.
// Matching is case-insensitive and ignores a leading "www.".
func (s *Site) HasDomain(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, domain := range s.Domains {
		if strings.TrimPrefix(strings.ToLower(domain), "www.") == host {
			return true
		}
	}
	return false
}

// Repository persists sites and the owner listing index.
type Repository struct {
	store *storage.Store
	log   *slog.Logger
}

// NewRepository creates a site repository over the store.
func NewRepository(store *storage.Store, logger *slog.Logger) *Repository {
	return &Repository{
		store: store,
		log:   logger.With(slog.String("component", "sites")),
	}
}

// CreateInput carries the caller-supplied fields of a new site.
type CreateInput struct {
	Name     string
	Domains  []string
	Timezone string
	OwnerID  string
}

// Create persists a new site and its owner index entry. The generated id is
// immutable for the site's lifetime.
func (r *Repository) Create(input CreateInput) (*Site, error) {
	if len(input.Domains) == 0 {
		return nil, errors.New("sites: at least one domain is required")
	}
	if input.OwnerID == "" {
		return nil, errors.New("sites: owner id is required")
	}
	if input.Timezone == "" {
		input.Timezone = "UTC"
	}

	now := time.Now().UTC()
	site := Site{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Domains:   input.Domains,
		Timezone:  input.Timezone,
		OwnerID:   input.OwnerID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	pk, sk := storage.SiteKey(site.ID)
	indexPK, indexSK := storage.OwnerIndexKey(site.OwnerID, site.ID)
	if err := r.store.PutIndexed(pk, sk, indexPK, indexSK, site); err != nil {
		return nil, fmt.Errorf("sites: failed to persist site: %w", err)
	}

	r.log.Info("Created site",
		slog.String("site_id", site.ID),
		slog.String("owner_id", site.OwnerID),
		slog.Any("domains", site.Domains))
	return &site, nil
}

// Get reads a site by id.
func (r *Repository) Get(siteID string) (*Site, error) {
	pk, sk := storage.SiteKey(siteID)

	var site Site
	if err := r.store.Get(pk, sk, &site); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewSiteNotFoundError(siteID)
		}
		return nil, fmt.Errorf("sites: failed to read site %s: %w", siteID, err)
	}
	return &site, nil
}

// Update persists changed site fields as a full record write, refreshing
// UpdatedAt. The owner index entry is rewritten alongside it.
func (r *Repository) Update(site *Site) error {
	if _, err := r.Get(site.ID); err != nil {
		return err
	}
	site.UpdatedAt = time.Now().UTC()

	pk, sk := storage.SiteKey(site.ID)
	indexPK, indexSK := storage.OwnerIndexKey(site.OwnerID, site.ID)
	if err := r.store.PutIndexed(pk, sk, indexPK, indexSK, site); err != nil {
		return fmt.Errorf("sites: failed to update site %s: %w", site.ID, err)
	}
	return nil
}

// ListAll returns every site. Used by background jobs that sweep all
// partitions.
func (r *Repository) ListAll() ([]Site, error) {
	pkPrefix, metaSK := storage.SiteScanKeys()

	var listed []Site
	err := r.store.ScanPartitions(pkPrefix, metaSK, func(pk string, value []byte) error {
		var site Site
		if err := json.Unmarshal(value, &site); err != nil {
			return fmt.Errorf("bad site record at %s: %w", pk, err)
		}
		listed = append(listed, site)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sites: failed to list sites: %w", err)
	}
	return listed, nil
}

// ListByOwner returns all sites of an owner via the owner index.
func (r *Repository) ListByOwner(ownerID string) ([]Site, error) {
	indexPK, _ := storage.OwnerIndexKey(ownerID, "")

	var listed []Site
	err := r.store.QueryIndex(indexPK, func(pk, sk string, value []byte) error {
		var site Site
		if err := json.Unmarshal(value, &site); err != nil {
			return fmt.Errorf("bad site record at %s: %w", sk, err)
		}
		listed = append(listed, site)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sites: failed to list sites for owner %s: %w", ownerID, err)
	}
	return listed, nil
}
