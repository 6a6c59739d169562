package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// leafL2 is the L2 penalty on Newton leaf values
const leafL2 = 1.0

// GradientBoosting boosts regression trees on the log-loss gradient.
// Leaf values are Newton steps sum(g) / (sum(h) + leafL2).
type GradientBoosting struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	LearningRate    float64
	Seed            int64

	Base  float64 // initial log-odds
	Trees []DecisionTree
}

// Name returns the family name
func (m *GradientBoosting) Name() string { return KindGradientBoosting }

// Params returns the hyper-parameters
func (m *GradientBoosting) Params() map[string]float64 {
	return map[string]float64{
		ParamNEstimators:     float64(m.NEstimators),
		ParamMaxDepth:        float64(m.MaxDepth),
		ParamMinSamplesSplit: float64(m.MinSamplesSplit),
		ParamLearningRate:    m.LearningRate,
	}
}

// Fit runs NEstimators boosting rounds
func (m *GradientBoosting) Fit(x mat.Matrix, y []int) error {
	rows, _, err := checkLabels(x, y)
	if err != nil {
		return fmt.Errorf("gradient boosting: %w", err)
	}
	if m.NEstimators <= 0 || m.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting: n_estimators and learning_rate must be positive")
	}

	cols := columns(x)
	target := labelsAsFloat(y)

	mean := 0.0
	for _, v := range target {
		mean += v
	}
	mean /= float64(rows)
	mean = math.Min(math.Max(mean, 1e-6), 1-1e-6)
	m.Base = math.Log(mean / (1 - mean))

	f := make([]float64, rows)
	for i := range f {
		f[i] = m.Base
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}

	rng := rand.New(rand.NewSource(m.Seed))
	resid := make([]float64, rows)
	hess := make([]float64, rows)
	row := make([]float64, len(cols))
	m.Trees = make([]DecisionTree, 0, m.NEstimators)

	for round := 0; round < m.NEstimators; round++ {
		for i := range resid {
			p := sigmoid(f[i])
			resid[i] = target[i] - p
			hess[i] = p * (1 - p)
		}

		tree := DecisionTree{MaxDepth: m.MaxDepth, MinSamplesSplit: m.MinSamplesSplit}
		tree.fitRows(cols, resid, idx, rng)

		// replace leaf means with Newton steps
		gsum := make([]float64, len(tree.Nodes))
		hsum := make([]float64, len(tree.Nodes))
		leaves := make([]int, rows)
		for i := 0; i < rows; i++ {
			for j := range cols {
				row[j] = cols[j][i]
			}
			leaf := leafOf(tree.Nodes, row)
			leaves[i] = leaf
			gsum[leaf] += resid[i]
			hsum[leaf] += hess[i]
		}
		for k := range tree.Nodes {
			if tree.Nodes[k].Feature < 0 {
				tree.Nodes[k].Value = gsum[k] / (hsum[k] + leafL2)
			}
		}

		for i := 0; i < rows; i++ {
			f[i] += m.LearningRate * tree.Nodes[leaves[i]].Value
		}
		m.Trees = append(m.Trees, tree)
	}

	return nil
}

// Score returns sigmoid of the boosted log-odds
func (m *GradientBoosting) Score(row []float64) float64 {
	z := m.Base
	for i := range m.Trees {
		z += m.LearningRate * m.Trees[i].Nodes[leafOf(m.Trees[i].Nodes, row)].Value
	}
	return sigmoid(z)
}

// Classify applies Threshold
func (m *GradientBoosting) Classify(row []float64) int {
	return classify(m.Score(row))
}
