// Package jobs holds the scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/orders"
	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/internal/scheduler"
	"github.com/wonny/delaycast/internal/training"
)

// RetrainConfig holds the retraining job settings
type RetrainConfig struct {
	Schedule     string  // cron spec, e.g. "@weekly" or "0 3 * * 1"
	ArtifactPath string  // replaced atomically on success
	MinF1        float64 // a selected model below this is not published; 0 disables the gate
	Quality      orders.QualityConfig
}

// RetrainJob reloads the orders, trains every candidate and publishes the
// selected pipeline as the new artifact. A running server with MODEL_WATCH
// picks the new file up without a restart.
type RetrainJob struct {
	cfg     RetrainConfig
	source  orders.Source
	trainer *training.Trainer
	runs    runs.Store // optional
	log     zerolog.Logger
}

// NewRetrainJob creates a new retraining job. store may be nil.
func NewRetrainJob(cfg RetrainConfig, source orders.Source, trainer *training.Trainer, store runs.Store, log zerolog.Logger) *RetrainJob {
	return &RetrainJob{
		cfg:     cfg,
		source:  source,
		trainer: trainer,
		runs:    store,
		log:     log.With().Str("component", "jobs.retrain").Logger(),
	}
}

// Name returns the job name
func (j *RetrainJob) Name() string {
	return "retrain"
}

// Schedule returns the cron schedule
func (j *RetrainJob) Schedule() string {
	return j.cfg.Schedule
}

// Run executes one retraining cycle.
// Data problems are permanent: retrying on the same input cannot succeed.
func (j *RetrainJob) Run(ctx context.Context) error {
	started := time.Now()
	source := j.source.Name()

	j.log.Info().Str("source", source).Msg("Starting scheduled retraining")

	result, err := j.train(ctx)
	if err != nil {
		j.record(ctx, runs.Failed(started, source, err))
		if contracts.IsDataError(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	best := result.Best()
	if best.Metrics.F1 < j.cfg.MinF1 {
		err := fmt.Errorf("selected %s has F1 %.3f below the publish gate %.3f", best.Name, best.Metrics.F1, j.cfg.MinF1)
		run := runs.Succeeded(result, source, "")
		run.Status = runs.StatusFailed
		run.Error = err.Error()
		j.record(ctx, run)
		return scheduler.Permanent(err)
	}

	if err := artifact.Save(artifact.FromResult(result), j.cfg.ArtifactPath); err != nil {
		j.record(ctx, runs.Failed(started, source, err))
		return err
	}
	j.record(ctx, runs.Succeeded(result, source, j.cfg.ArtifactPath))

	j.log.Info().
		Str("run_id", result.RunID).
		Str("selected", best.Name).
		Float64("f1", best.Metrics.F1).
		Str("artifact", j.cfg.ArtifactPath).
		Msg("Retraining published a new artifact")

	return nil
}

func (j *RetrainJob) train(ctx context.Context) (*training.Result, error) {
	orderList, snapshot, err := j.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	j.log.Info().
		Int("rows", snapshot.TotalRows).
		Int("imputed", snapshot.TotalImputed()).
		Float64("coverage", snapshot.CoverageRate()).
		Msg("Orders loaded")

	if err := orders.NewQualityGate(j.cfg.Quality).Check(snapshot); err != nil {
		return nil, err
	}

	return j.trainer.Run(ctx, orderList)
}

// record stores the run; history failures never fail the job
func (j *RetrainJob) record(ctx context.Context, run runs.Run) {
	if j.runs == nil {
		return
	}
	if err := j.runs.Save(ctx, run); err != nil {
		j.log.Warn().Err(err).Str("run_id", run.RunID.String()).Msg("failed to record training run")
	}
}
