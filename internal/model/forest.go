package model

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RandomForest averages bootstrap-trained trees with sqrt(p) features per split
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64

	Trees []DecisionTree
}

// Name returns the family name
func (m *RandomForest) Name() string { return KindRandomForest }

// Params returns the hyper-parameters
func (m *RandomForest) Params() map[string]float64 {
	return map[string]float64{
		ParamNEstimators:     float64(m.NEstimators),
		ParamMaxDepth:        float64(m.MaxDepth),
		ParamMinSamplesSplit: float64(m.MinSamplesSplit),
	}
}

// Fit trains the trees concurrently. Each tree draws from its own seeded
// source, so the fitted forest does not depend on scheduling.
func (m *RandomForest) Fit(x mat.Matrix, y []int) error {
	rows, cols, err := checkLabels(x, y)
	if err != nil {
		return fmt.Errorf("random forest: %w", err)
	}
	if m.NEstimators <= 0 {
		return fmt.Errorf("random forest: n_estimators must be positive, got %d", m.NEstimators)
	}

	colData := columns(x)
	target := labelsAsFloat(y)
	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(cols)))))

	trees := make([]DecisionTree, m.NEstimators)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(m.Seed + int64(t)*7919 + 1))

			idx := make([]int, rows)
			for i := range idx {
				idx[i] = rng.Intn(rows)
			}

			tree := DecisionTree{
				MaxDepth:        m.MaxDepth,
				MinSamplesSplit: m.MinSamplesSplit,
				MaxFeatures:     maxFeatures,
			}
			tree.fitRows(colData, target, idx, rng)
			trees[t] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("random forest: %w", err)
	}

	m.Trees = trees
	return nil
}

// Score averages the trees' delayed fractions
func (m *RandomForest) Score(row []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range m.Trees {
		sum += m.Trees[i].Score(row)
	}
	return sum / float64(len(m.Trees))
}

// Classify applies Threshold
func (m *RandomForest) Classify(row []float64) int {
	return classify(m.Score(row))
}
