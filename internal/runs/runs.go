// Package runs records training runs: parameters and held-out metrics of
// every candidate, the selected model and where its artifact was written.
package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/training"
)

// Run status values
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound is returned by Get for an unknown run id
var ErrNotFound = errors.New("training run not found")

// Run is one row of the run history
type Run struct {
	RunID        uuid.UUID                    `json:"run_id"`
	StartedAt    time.Time                    `json:"started_at"`
	FinishedAt   time.Time                    `json:"finished_at"`
	Status       string                       `json:"status"`
	Source       string                       `json:"source"`
	TrainRows    int                          `json:"train_rows"`
	TestRows     int                          `json:"test_rows"`
	Selected     string                       `json:"selected,omitempty"`
	F1           float64                      `json:"f1"`
	Accuracy     float64                      `json:"accuracy"`
	ArtifactPath string                       `json:"artifact_path,omitempty"`
	Candidates   []contracts.CandidateMetrics `json:"candidates"`
	Error        string                       `json:"error,omitempty"`
}

// Store persists runs
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

// Succeeded builds the history row of a finished training run
func Succeeded(r *training.Result, source, artifactPath string) Run {
	best := r.Best()
	id, err := uuid.Parse(r.RunID)
	if err != nil {
		id = uuid.New()
	}
	return Run{
		RunID:        id,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Status:       StatusSucceeded,
		Source:       source,
		TrainRows:    r.TrainRows,
		TestRows:     r.TestRows,
		Selected:     best.Name,
		F1:           best.Metrics.F1,
		Accuracy:     best.Metrics.Accuracy,
		ArtifactPath: artifactPath,
		Candidates:   r.Summaries(),
	}
}

// Failed builds the history row of a run that aborted with err
func Failed(started time.Time, source string, err error) Run {
	return Run{
		RunID:      uuid.New(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Status:     StatusFailed,
		Source:     source,
		Candidates: []contracts.CandidateMetrics{},
		Error:      err.Error(),
	}
}
