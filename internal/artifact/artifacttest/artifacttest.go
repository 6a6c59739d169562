// Package artifacttest trains a small artifact for tests of the serving path.
package artifacttest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/testutil"
	"github.com/wonny/delaycast/internal/training"
)

var (
	once      sync.Once
	bundle    *artifact.Bundle
	bundleErr error
)

// Bundle returns a bundle trained once per test binary on synthetic orders
func Bundle(t testing.TB) *artifact.Bundle {
	t.Helper()
	once.Do(func() {
		cfg := training.DefaultConfig()
		cfg.Candidates = []training.CandidateConfig{
			{Name: model.KindLogisticRegression},
			{Name: model.KindRandomForest, Params: map[string]float64{model.ParamNEstimators: 10}},
		}
		cfg.GridSearch.Enabled = false

		var result *training.Result
		result, bundleErr = training.NewTrainer(cfg, nil, zerolog.Nop()).Run(context.Background(), testutil.SyntheticOrders(300, 5))
		if bundleErr == nil {
			bundle = artifact.FromResult(result)
		}
	})
	require.NoError(t, bundleErr)
	return bundle
}

// Save writes the shared bundle into a temp dir and returns its path
func Save(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "delivery_delay_model.bin")
	require.NoError(t, artifact.Save(Bundle(t), path))
	return path
}

// Model saves and loads the shared bundle
func Model(t testing.TB) *artifact.Model {
	t.Helper()
	m, err := artifact.Load(Save(t))
	require.NoError(t, err)
	return m
}
