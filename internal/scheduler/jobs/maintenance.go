package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner deletes run history older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// PruneRunsJob removes training runs past their retention period
type PruneRunsJob struct {
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewPruneRunsJob creates a new run history cleanup job
func NewPruneRunsJob(pruner Pruner, retention time.Duration, log zerolog.Logger) *PruneRunsJob {
	return &PruneRunsJob{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("component", "jobs.prune_runs").Logger(),
	}
}

// Name returns the job name
func (j *PruneRunsJob) Name() string {
	return "prune_runs"
}

// Schedule returns the cron schedule (daily at 04:30)
func (j *PruneRunsJob) Schedule() string {
	return "30 4 * * *"
}

// Run executes the cleanup
func (j *PruneRunsJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	j.log.Debug().Time("before", cutoff).Msg("Starting run history cleanup")

	removed, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Run history cleanup completed")
	}
	return nil
}
