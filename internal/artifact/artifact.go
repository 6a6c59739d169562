// Package artifact persists a trained pipeline with everything serving needs:
// the fitted transform and classifier, the risk table and run metadata.
package artifact

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/features"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/training"
)

// Envelope identity. A change to either makes older artifacts unloadable.
const (
	SchemaTag     = "delaycast/delivery-delay"
	FormatVersion = 1
)

// Bundle is the persisted content of one artifact
type Bundle struct {
	RunID      string
	CreatedAt  time.Time
	Candidate  string
	Metrics    contracts.CandidateMetrics
	Candidates []contracts.CandidateMetrics
	Schema     contracts.FeatureSchema
	Features   []string
	Pipeline   *model.Pipeline
	Risk       *features.RiskTable
	TrainRows  int
	TestRows   int
}

type envelope struct {
	Schema  string
	Version int
	Bundle  Bundle
}

// FromResult packages the selected candidate of a training run
func FromResult(r *training.Result) *Bundle {
	best := r.Best()
	return &Bundle{
		RunID:      r.RunID,
		CreatedAt:  r.FinishedAt,
		Candidate:  best.Name,
		Metrics:    best.Summary(),
		Candidates: r.Summaries(),
		Schema:     r.Schema,
		Features:   best.Pipeline.Transform.FeatureNames(),
		Pipeline:   best.Pipeline,
		Risk:       r.RiskTable,
		TrainRows:  r.TrainRows,
		TestRows:   r.TestRows,
	}
}

// Save writes b to path. The bytes go to a temporary file in the same
// directory which is renamed over path, so readers never see a partial artifact.
func Save(b *Bundle, path string) error {
	if b == nil || b.Pipeline == nil {
		return fmt.Errorf("save artifact: empty bundle")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".delaycast-*.tmp")
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	env := envelope{Schema: SchemaTag, Version: FormatVersion, Bundle: *b}
	if err := gob.NewEncoder(w).Encode(&env); err != nil {
		tmp.Close()
		return fmt.Errorf("save artifact: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Load reads and validates the artifact at path.
// Errors wrap ErrArtifactNotFound, ErrArtifactCorrupt or ErrSchemaMismatch.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", contracts.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", contracts.ErrArtifactCorrupt, path, err)
	}
	defer f.Close()

	var env envelope
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contracts.ErrArtifactCorrupt, path, err)
	}

	if env.Schema != SchemaTag || env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s has %s v%d, want %s v%d",
			contracts.ErrSchemaMismatch, path, env.Schema, env.Version, SchemaTag, FormatVersion)
	}

	b := env.Bundle
	if !b.Schema.Equal(contracts.DefaultFeatureSchema()) {
		return nil, fmt.Errorf("%w: %s was trained on features %v", contracts.ErrSchemaMismatch, path, b.Schema.Columns())
	}
	if b.Pipeline == nil || b.Pipeline.Transform == nil || !b.Pipeline.Transform.Fitted || b.Pipeline.Classifier == nil {
		return nil, fmt.Errorf("%w: %s holds no fitted pipeline", contracts.ErrArtifactCorrupt, path)
	}
	if !b.Pipeline.Transform.Schema.Equal(b.Schema) {
		return nil, fmt.Errorf("%w: %s transform schema differs from bundle schema", contracts.ErrSchemaMismatch, path)
	}
	if b.Risk == nil {
		b.Risk = &features.RiskTable{}
	}

	return &Model{bundle: &b, path: path, loadedAt: time.Now()}, nil
}

// ResolvePath returns the first existing file among candidates
func ResolvePath(candidates []string) (string, error) {
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: searched %v", contracts.ErrArtifactNotFound, candidates)
}
