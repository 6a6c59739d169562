// Package model implements the candidate classifier families, the fitted
// transform+classifier pipeline, held-out metrics and stratified splits.
package model

import (
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Candidate family names
const (
	KindLogisticRegression = "logistic_regression"
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
	KindGradientBoosting   = "gradient_boosting"
)

// Parameter keys accepted by New
const (
	ParamC               = "c"
	ParamMaxIter         = "max_iter"
	ParamMaxDepth        = "max_depth"
	ParamMinSamplesSplit = "min_samples_split"
	ParamNEstimators     = "n_estimators"
	ParamLearningRate    = "learning_rate"
)

// Threshold is the probability above which an order is classified as delayed
const Threshold = 0.5

// Classifier is a binary classifier over a preprocessed design matrix
// ⭐ SSOT: 모든 후보 모델은 이 인터페이스를 구현
type Classifier interface {
	Name() string
	Fit(x mat.Matrix, y []int) error
	// Score returns P(delayed) for one preprocessed row
	Score(row []float64) float64
	// Classify returns 1 iff Score(row) > Threshold
	Classify(row []float64) int
	Params() map[string]float64
}

func init() {
	gob.Register(&LogisticRegression{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
}

// New builds an unfitted classifier of the given family.
// Missing params take the family defaults.
func New(kind string, params map[string]float64, seed int64) (Classifier, error) {
	switch kind {
	case KindLogisticRegression:
		return &LogisticRegression{
			C:       param(params, ParamC, 1),
			MaxIter: int(param(params, ParamMaxIter, 1000)),
		}, nil
	case KindDecisionTree:
		return &DecisionTree{
			MaxDepth:        int(param(params, ParamMaxDepth, 0)),
			MinSamplesSplit: int(param(params, ParamMinSamplesSplit, 2)),
			Seed:            seed,
		}, nil
	case KindRandomForest:
		return &RandomForest{
			NEstimators:     int(param(params, ParamNEstimators, 100)),
			MaxDepth:        int(param(params, ParamMaxDepth, 0)),
			MinSamplesSplit: int(param(params, ParamMinSamplesSplit, 2)),
			Seed:            seed,
		}, nil
	case KindGradientBoosting:
		return &GradientBoosting{
			NEstimators:     int(param(params, ParamNEstimators, 300)),
			MaxDepth:        int(param(params, ParamMaxDepth, 6)),
			MinSamplesSplit: int(param(params, ParamMinSamplesSplit, 2)),
			LearningRate:    param(params, ParamLearningRate, 0.1),
			Seed:            seed,
		}, nil
	default:
		return nil, fmt.Errorf("unknown classifier family %q", kind)
	}
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// classify applies Threshold to a probability
func classify(p float64) int {
	if p > Threshold {
		return 1
	}
	return 0
}

// checkLabels validates y against x and requires binary labels
func checkLabels(x mat.Matrix, y []int) (rows, cols int, err error) {
	rows, cols = x.Dims()
	if rows != len(y) {
		return 0, 0, fmt.Errorf("x has %d rows, y has %d labels", rows, len(y))
	}
	if rows == 0 {
		return 0, 0, fmt.Errorf("no training rows")
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return 0, 0, fmt.Errorf("label %d at row %d is not binary", v, i)
		}
	}
	return rows, cols, nil
}

// columns copies x into column-major slices for split search
func columns(x mat.Matrix) [][]float64 {
	rows, cols := x.Dims()
	out := make([][]float64, cols)
	for j := range out {
		col := make([]float64, rows)
		for i := range col {
			col[i] = x.At(i, j)
		}
		out[j] = col
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// log1pExp computes log(1 + e^z) without overflow
func log1pExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
