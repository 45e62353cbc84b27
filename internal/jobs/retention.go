package jobs

import (
	"log/slog"
	"time"

	"visitra/internal/config"
	"visitra/internal/sites"
	"visitra/internal/storage"
)

// RetentionJob removes raw page view records older than the retention
// period. Rolled-up stats buckets are kept; only the raw event trail is
// swept, which keeps stored personal-adjacent data minimal.
type RetentionJob struct {
	store  *storage.Store
	repo   *sites.Repository
	logger *slog.Logger
	cfg    *config.Config
}

func NewRetentionJob(store *storage.Store, repo *sites.Repository, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		store:  store,
		repo:   repo,
		logger: logger,
		cfg:    cfg,
	}
}

// Run deletes each site's page views older than the configured retention
// window. Deletion happens in bounded batches per site.
func (j *RetentionJob) Run() error {
	retentionDays := j.cfg.PageViewRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Page view retention disabled")
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	j.logger.Info("Starting page view retention sweep",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff", cutoff))

	allSites, err := j.repo.ListAll()
	if err != nil {
		return err
	}

	totalDeleted := 0
	for _, site := range allSites {
		pk, _ := storage.SiteKey(site.ID)
		skLow, skHigh := storage.PageViewRange(time.Time{}, cutoff)

		deleted, err := j.store.DeleteRange(pk, skLow, skHigh)
		if err != nil {
			j.logger.Error("Failed to sweep old page views",
				slog.String("site_id", site.ID),
				slog.Any("error", err))
			continue
		}
		totalDeleted += deleted
	}

	j.logger.Info("Page view retention sweep completed",
		slog.Int("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))
	return nil
}
