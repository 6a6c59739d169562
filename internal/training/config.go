// Package training fits the candidate pipelines, optionally grid-searches the
// random forest and selects the best candidate by held-out F1.
package training

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/orders"
)

// TunedCandidate is the name of the grid-searched random forest
const TunedCandidate = "random_forest_tuned"

// Default values for the training configuration.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
	DefaultFolds    = 3
)

// Config holds training settings parsed from the `training:` section of a YAML file
type Config struct {
	// TestSize is the held-out fraction, per class (default 0.2).
	TestSize float64 `yaml:"test_size"`

	// Seed drives the split, the folds and every seeded classifier (default 42).
	Seed int64 `yaml:"seed"`

	// RiskSmoothing is m in the customer risk shrinkage. 0 keeps raw means.
	RiskSmoothing float64 `yaml:"risk_smoothing"`

	// Candidates are fitted and compared in this order.
	Candidates []CandidateConfig `yaml:"candidates"`

	// GridSearch tunes the random forest.
	GridSearch GridConfig `yaml:"grid_search"`

	// Quality rejects loads with too few rows or too many missing cells.
	Quality orders.QualityConfig `yaml:"quality"`
}

// CandidateConfig names one classifier family and its hyper-parameters
type CandidateConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// GridConfig is the random forest search space.
// A max_depth of 0 means unlimited depth.
type GridConfig struct {
	Enabled         bool          `yaml:"enabled"`
	NEstimators     []int         `yaml:"n_estimators"`
	MaxDepth        []int         `yaml:"max_depth"`
	MinSamplesSplit []int         `yaml:"min_samples_split"`
	Folds           int           `yaml:"folds"`
	Timeout         time.Duration `yaml:"timeout"` // 0 = no budget
}

// Points returns every grid combination, n_estimators outermost
func (g GridConfig) Points() []GridPoint {
	points := make([]GridPoint, 0, len(g.NEstimators)*len(g.MaxDepth)*len(g.MinSamplesSplit))
	for _, n := range g.NEstimators {
		for _, d := range g.MaxDepth {
			for _, s := range g.MinSamplesSplit {
				points = append(points, GridPoint{NEstimators: n, MaxDepth: d, MinSamplesSplit: s})
			}
		}
	}
	return points
}

type fileConfig struct {
	Training *Config `yaml:"training"`
}

// DefaultConfig returns the baseline candidates and the full random forest grid
func DefaultConfig() Config {
	return Config{
		TestSize: DefaultTestSize,
		Seed:     DefaultSeed,
		Candidates: []CandidateConfig{
			{Name: model.KindLogisticRegression, Params: map[string]float64{model.ParamMaxIter: 1000}},
			{Name: model.KindDecisionTree},
			{Name: model.KindRandomForest, Params: map[string]float64{model.ParamNEstimators: 100}},
			{Name: model.KindGradientBoosting, Params: map[string]float64{
				model.ParamNEstimators:  300,
				model.ParamMaxDepth:     6,
				model.ParamLearningRate: 0.1,
			}},
		},
		GridSearch: GridConfig{
			Enabled:         true,
			NEstimators:     []int{100, 200, 300},
			MaxDepth:        []int{0, 10, 20},
			MinSamplesSplit: []int{2, 5, 10},
			Folds:           DefaultFolds,
		},
	}
}

// LoadConfig reads path. An empty path returns DefaultConfig.
// Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("training config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fileConfig{Training: &cfg}); err != nil {
		return Config{}, fmt.Errorf("training config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("training config: %w", err)
	}

	return cfg, nil
}

// Validate checks structural constraints
func (c Config) Validate() error {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size %v must be in (0, 1)", c.TestSize)
	}
	if c.RiskSmoothing < 0 {
		return fmt.Errorf("risk_smoothing must not be negative")
	}
	if err := c.Quality.Validate(); err != nil {
		return err
	}
	if len(c.Candidates) == 0 && !c.GridSearch.Enabled {
		return fmt.Errorf("no candidates configured")
	}

	seen := make(map[string]bool, len(c.Candidates))
	for _, cand := range c.Candidates {
		if seen[cand.Name] {
			return fmt.Errorf("candidate %q listed twice", cand.Name)
		}
		seen[cand.Name] = true
		if _, err := model.New(cand.Name, cand.Params, c.Seed); err != nil {
			return err
		}
	}

	if c.GridSearch.Enabled {
		g := c.GridSearch
		if len(g.NEstimators) == 0 || len(g.MaxDepth) == 0 || len(g.MinSamplesSplit) == 0 {
			return fmt.Errorf("grid_search needs n_estimators, max_depth and min_samples_split values")
		}
		if g.Folds < 2 {
			return fmt.Errorf("grid_search.folds %d must be at least 2", g.Folds)
		}
		if g.Timeout < 0 {
			return fmt.Errorf("grid_search.timeout must not be negative")
		}
	}

	return nil
}
