package training

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "training.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.Seed)
	require.Len(t, cfg.Candidates, 4)
	assert.Equal(t, model.KindLogisticRegression, cfg.Candidates[0].Name)
	assert.Equal(t, model.KindGradientBoosting, cfg.Candidates[3].Name)
	assert.True(t, cfg.GridSearch.Enabled)
	assert.Len(t, cfg.GridSearch.Points(), 27)
	assert.Equal(t, 3, cfg.GridSearch.Folds)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
training:
  test_size: 0.3
  risk_smoothing: 5
  candidates:
    - name: decision_tree
      params:
        max_depth: 4
  grid_search:
    n_estimators: [10]
    max_depth: [0, 5]
    min_samples_split: [2]
    timeout: 90s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.TestSize)
	assert.Equal(t, int64(42), cfg.Seed, "omitted field keeps its default")
	assert.Equal(t, 5.0, cfg.RiskSmoothing)
	require.Len(t, cfg.Candidates, 1)
	assert.Equal(t, 4.0, cfg.Candidates[0].Params[model.ParamMaxDepth])
	assert.Equal(t, 90*time.Second, cfg.GridSearch.Timeout)
	assert.Equal(t, 3, cfg.GridSearch.Folds)
	assert.Equal(t, []GridPoint{
		{NEstimators: 10, MaxDepth: 0, MinSamplesSplit: 2},
		{NEstimators: 10, MaxDepth: 5, MinSamplesSplit: 2},
	}, cfg.GridSearch.Points())
}

func TestLoadConfig_RepoFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "training.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Candidates, 4)
	assert.Equal(t, 30*time.Minute, cfg.GridSearch.Timeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"test size", "training:\n  test_size: 1.5\n"},
		{"unknown family", "training:\n  candidates:\n    - name: svm\n"},
		{"duplicate", "training:\n  candidates:\n    - name: decision_tree\n    - name: decision_tree\n"},
		{"folds", "training:\n  grid_search:\n    folds: 1\n"},
		{"empty grid", "training:\n  grid_search:\n    n_estimators: []\n"},
		{"bad yaml", "training: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
