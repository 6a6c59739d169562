package orders

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wonny/delaycast/internal/contracts"
)

// ErrLowCoverage marks a column whose non-missing fraction is under its threshold
var ErrLowCoverage = errors.New("coverage below threshold")

// QualityConfig holds coverage thresholds applied before training.
// A zero threshold disables the check.
type QualityConfig struct {
	MinRows     int                `yaml:"min_rows"`
	MinCoverage float64            `yaml:"min_coverage"` // every raw column
	Columns     map[string]float64 `yaml:"columns"`      // per-column overrides
}

// QualityGate validates a load snapshot
// ⭐ SSOT: orders → training 품질 검증
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config QualityConfig) *QualityGate {
	return &QualityGate{config: config}
}

// Check returns a DataError for the first failing threshold, columns in name order
func (g *QualityGate) Check(snapshot *contracts.DataQualitySnapshot) error {
	if snapshot == nil {
		return &contracts.DataError{Op: "quality", Err: contracts.ErrEmptyDataset}
	}
	if g.config.MinRows > 0 && snapshot.TotalRows < g.config.MinRows {
		return &contracts.DataError{
			Op:  "quality",
			Err: fmt.Errorf("%d rows, need at least %d: %w", snapshot.TotalRows, g.config.MinRows, contracts.ErrEmptyDataset),
		}
	}

	cols := make([]string, 0, len(snapshot.Coverage))
	for col := range snapshot.Coverage {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		min := g.config.MinCoverage
		if v, ok := g.config.Columns[col]; ok {
			min = v
		}
		if min <= 0 {
			continue
		}
		if cov := snapshot.Coverage[col]; cov < min {
			return &contracts.DataError{
				Op:     "quality",
				Column: col,
				Err:    fmt.Errorf("%.1f%% < %.1f%%: %w", cov*100, min*100, ErrLowCoverage),
			}
		}
	}
	return nil
}

// Validate checks thresholds are fractions
func (c QualityConfig) Validate() error {
	if c.MinRows < 0 {
		return fmt.Errorf("quality.min_rows must not be negative")
	}
	if c.MinCoverage < 0 || c.MinCoverage > 1 {
		return fmt.Errorf("quality.min_coverage %v must be in [0, 1]", c.MinCoverage)
	}
	for col, v := range c.Columns {
		if v < 0 || v > 1 {
			return fmt.Errorf("quality.columns.%s %v must be in [0, 1]", col, v)
		}
	}
	return nil
}
