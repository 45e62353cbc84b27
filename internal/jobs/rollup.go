package jobs

import (
	"log/slog"
	"time"

	"visitra/internal/sites"
	"visitra/internal/stats"
	"visitra/internal/storage"
)

// RollupJob recomputes the persisted stats buckets of every site. Buckets
// are derived data, so re-running over an already rolled-up window is
// harmless.
type RollupJob struct {
	querier *stats.Querier
	repo    *sites.Repository
	logger  *slog.Logger
}

func NewRollupJob(store *storage.Store, repo *sites.Repository, logger *slog.Logger) *RollupJob {
	return &RollupJob{
		querier: stats.NewQuerier(store, logger),
		repo:    repo,
		logger:  logger,
	}
}

// Run rolls up the trailing 24 hours at hour resolution and the trailing
// 35 days at day resolution for every active site. The day window overlaps
// a full month so month-boundary buckets settle on repeated runs.
func (j *RollupJob) Run() error {
	allSites, err := j.repo.ListAll()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	start := time.Now()
	rolled := 0

	for _, site := range allSites {
		if !site.Active {
			continue
		}
		if err := j.querier.Rollup(site.ID, now.Add(-24*time.Hour), now, stats.PeriodHour); err != nil {
			j.logger.Error("Hourly rollup failed",
				slog.String("site_id", site.ID),
				slog.Any("error", err))
			continue
		}
		if err := j.querier.Rollup(site.ID, now.AddDate(0, 0, -35), now, stats.PeriodDay); err != nil {
			j.logger.Error("Daily rollup failed",
				slog.String("site_id", site.ID),
				slog.Any("error", err))
			continue
		}
		rolled++
	}

	j.logger.Info("Stats rollup completed",
		slog.Int("sites", rolled),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
