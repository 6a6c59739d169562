package artifact

import (
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/features"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/testutil"
	"github.com/wonny/delaycast/internal/training"
)

var (
	resultOnce sync.Once
	result     *training.Result
	resultErr  error
)

// trainedResult trains one small run shared by every test in the package
func trainedResult(t *testing.T) *training.Result {
	t.Helper()
	resultOnce.Do(func() {
		cfg := training.DefaultConfig()
		cfg.Candidates = []training.CandidateConfig{
			{Name: model.KindLogisticRegression},
			{Name: model.KindDecisionTree, Params: map[string]float64{model.ParamMaxDepth: 6}},
			{Name: model.KindRandomForest, Params: map[string]float64{model.ParamNEstimators: 8}},
			{Name: model.KindGradientBoosting, Params: map[string]float64{model.ParamNEstimators: 15, model.ParamMaxDepth: 3}},
		}
		cfg.GridSearch.Enabled = false
		result, resultErr = training.NewTrainer(cfg, nil, zerolog.Nop()).Run(context.Background(), testutil.SyntheticOrders(250, 3))
	})
	require.NoError(t, resultErr)
	return result
}

func sampleTable(t *testing.T) *contracts.FeatureTable {
	t.Helper()
	table, _, _, err := features.NewBuilder(0, zerolog.Nop()).Build(testutil.SyntheticOrders(80, 9))
	require.NoError(t, err)
	return table
}

func TestFromResult(t *testing.T) {
	r := trainedResult(t)
	b := FromResult(r)

	best := r.Best()
	assert.Equal(t, r.RunID, b.RunID)
	assert.Equal(t, best.Name, b.Candidate)
	assert.Equal(t, best.Metrics.F1, b.Metrics.F1)
	assert.Len(t, b.Candidates, len(r.Candidates))
	assert.Same(t, best.Pipeline, b.Pipeline)
	assert.Same(t, r.RiskTable, b.Risk)
	assert.Equal(t, best.Pipeline.Transform.FeatureNames(), b.Features)
	assert.Equal(t, r.TrainRows, b.TrainRows)
}

func TestSaveLoad_RoundTripEveryFamily(t *testing.T) {
	r := trainedResult(t)
	table := sampleTable(t)

	for _, c := range r.Candidates {
		t.Run(c.Name, func(t *testing.T) {
			b := FromResult(r)
			b.Candidate = c.Name
			b.Pipeline = c.Pipeline

			path := filepath.Join(t.TempDir(), "model.bin")
			require.NoError(t, Save(b, path))

			loaded, err := Load(path)
			require.NoError(t, err)

			wantLabels, err := c.Pipeline.Predict(table)
			require.NoError(t, err)
			gotLabels, err := loaded.Predict(table)
			require.NoError(t, err)
			assert.Equal(t, wantLabels, gotLabels)

			wantProba, err := c.Pipeline.PredictProbability(table)
			require.NoError(t, err)
			gotProba, err := loaded.PredictProbability(table)
			require.NoError(t, err)
			assert.InDeltaSlice(t, wantProba, gotProba, 1e-6)
		})
	}
}

func TestLoad_RestoresMetadata(t *testing.T) {
	r := trainedResult(t)
	path := filepath.Join(t.TempDir(), "nested", "model.bin")
	require.NoError(t, Save(FromResult(r), path))

	m, err := Load(path)
	require.NoError(t, err)

	info := m.Info()
	assert.Equal(t, r.RunID, info.RunID)
	assert.Equal(t, SchemaTag, info.Schema)
	assert.Equal(t, r.Best().Name, info.Candidate)
	assert.Equal(t, path, info.Path)
	assert.False(t, info.LoadedAt.IsZero())
	assert.Equal(t, r.RiskTable.Prior, info.RiskPrior)
	assert.True(t, m.Schema().Equal(contracts.DefaultFeatureSchema()))

	for _, id := range r.RiskTable.Customers() {
		want, _ := r.RiskTable.Lookup(id)
		got, seen := m.RiskScore(id)
		assert.True(t, seen)
		assert.Equal(t, want, got)
	}
	score, seen := m.RiskScore("never-seen")
	assert.False(t, seen)
	assert.Equal(t, m.RiskPrior(), score)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	require.NoError(t, Save(FromResult(trainedResult(t)), path))
	require.NoError(t, Save(FromResult(trainedResult(t)), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.bin", entries[0].Name())
}

func TestSave_RejectsEmptyBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	assert.Error(t, Save(nil, path))
	assert.Error(t, Save(&Bundle{}, path))
	assert.NoFileExists(t, path)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, contracts.ErrArtifactNotFound)
	assert.True(t, contracts.IsArtifactError(err))
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a model"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, contracts.ErrArtifactCorrupt)
}

func TestLoad_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, Save(FromResult(trainedResult(t)), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, contracts.ErrArtifactCorrupt)
}

// writeEnvelope bypasses Save so tests can produce foreign artifacts
func writeEnvelope(t *testing.T, env envelope) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gob.NewEncoder(f).Encode(&env))
	return path
}

func TestLoad_SchemaMismatch(t *testing.T) {
	good := *FromResult(trainedResult(t))

	otherFeatures := good
	otherFeatures.Schema = contracts.FeatureSchema{
		Numeric:     []string{contracts.FeaturePrice},
		Categorical: good.Schema.Categorical,
	}

	tests := []struct {
		name string
		env  envelope
	}{
		{"foreign tag", envelope{Schema: "someone/else", Version: FormatVersion, Bundle: good}},
		{"newer version", envelope{Schema: SchemaTag, Version: FormatVersion + 1, Bundle: good}},
		{"different feature set", envelope{Schema: SchemaTag, Version: FormatVersion, Bundle: otherFeatures}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeEnvelope(t, tt.env))
			assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)
		})
	}
}

func TestLoad_UnfittedPipeline(t *testing.T) {
	b := *FromResult(trainedResult(t))
	clf, err := model.New(model.KindLogisticRegression, nil, 1)
	require.NoError(t, err)
	b.Pipeline = model.NewPipeline(b.Schema, clf)

	_, err = Load(writeEnvelope(t, envelope{Schema: SchemaTag, Version: FormatVersion, Bundle: b}))
	assert.ErrorIs(t, err, contracts.ErrArtifactCorrupt)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.bin")
	second := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(second, []byte("x"), 0o644))

	got, err := ResolvePath([]string{first, dir, second})
	require.NoError(t, err)
	assert.Equal(t, second, got)

	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))
	got, err = ResolvePath([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = ResolvePath([]string{filepath.Join(dir, "none.bin")})
	assert.ErrorIs(t, err, contracts.ErrArtifactNotFound)
}

func TestWatch_ReloadsReplacedArtifact(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watcher test in short mode")
	}

	r := trainedResult(t)
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, Save(FromResult(r), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Model, 16)
	failed := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(m *Model) { changed <- m }, func(err error) { failed <- err }, zerolog.Nop())
	}()

	// the watcher may not be registered yet, so keep saving until a reload lands
	require.Eventually(t, func() bool {
		if err := Save(FromResult(r), path); err != nil {
			return false
		}
		select {
		case m := <-changed:
			return m.RunID() == r.RunID
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	// a broken write is reported and does not produce a model
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	select {
	case err := <-failed:
		assert.True(t, contracts.IsArtifactError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("expected a reload failure")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
