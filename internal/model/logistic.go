package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is L2-regularized logistic regression fitted with L-BFGS.
// The intercept is not penalized.
type LogisticRegression struct {
	C       float64 // inverse regularization strength
	MaxIter int

	Weights   []float64
	Intercept float64
}

// Name returns the family name
func (m *LogisticRegression) Name() string { return KindLogisticRegression }

// Params returns the hyper-parameters
func (m *LogisticRegression) Params() map[string]float64 {
	return map[string]float64{ParamC: m.C, ParamMaxIter: float64(m.MaxIter)}
}

// Fit minimizes mean log loss + ||w||^2 / (2 C n)
func (m *LogisticRegression) Fit(x mat.Matrix, y []int) error {
	rows, cols, err := checkLabels(x, y)
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	if m.C <= 0 {
		return fmt.Errorf("logistic regression: C must be positive, got %v", m.C)
	}

	dense := mat.DenseCopyOf(x)
	target := make([]float64, rows)
	for i, v := range y {
		target[i] = float64(v)
	}

	n := float64(rows)
	lambda := 1 / (m.C * n)
	z := mat.NewVecDense(rows, nil)
	resid := mat.NewVecDense(rows, nil)
	gw := mat.NewVecDense(cols, nil)

	// params layout: [w_0 .. w_{cols-1}, b]
	linear := func(params []float64) {
		w := mat.NewVecDense(cols, params[:cols])
		z.MulVec(dense, w)
		b := params[cols]
		for i := 0; i < rows; i++ {
			z.SetVec(i, z.AtVec(i)+b)
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			linear(params)
			loss := 0.0
			for i := 0; i < rows; i++ {
				zi := z.AtVec(i)
				loss += log1pExp(zi) - target[i]*zi
			}
			w := params[:cols]
			return loss/n + 0.5*lambda*floats.Dot(w, w)
		},
		Grad: func(grad, params []float64) {
			linear(params)
			sum := 0.0
			for i := 0; i < rows; i++ {
				r := sigmoid(z.AtVec(i)) - target[i]
				resid.SetVec(i, r)
				sum += r
			}
			gw.MulVec(dense.T(), resid)
			for j := 0; j < cols; j++ {
				grad[j] = gw.AtVec(j)/n + lambda*params[j]
			}
			grad[cols] = sum / n
		},
	}

	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-4,
	}

	result, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("logistic regression: %w", err)
	}
	switch {
	case result.Status == optimize.IterationLimit:
		// a capped run still leaves a usable optimum
	case err != nil:
		return fmt.Errorf("logistic regression: optimizer stopped with %s: %w", result.Status, err)
	case result.Status.Early():
		return fmt.Errorf("logistic regression: optimizer stopped with %s: %w", result.Status, result.Status.Err())
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) || floats.HasNaN(result.X) {
		return fmt.Errorf("logistic regression: optimizer stopped with %s at a non-finite loss", result.Status)
	}

	m.Weights = append([]float64(nil), result.X[:cols]...)
	m.Intercept = result.X[cols]
	return nil
}

// Score returns sigmoid(w·row + b)
func (m *LogisticRegression) Score(row []float64) float64 {
	if len(m.Weights) == 0 {
		return 0
	}
	return sigmoid(floats.Dot(m.Weights, row[:len(m.Weights)]) + m.Intercept)
}

// Classify applies Threshold
func (m *LogisticRegression) Classify(row []float64) int {
	return classify(m.Score(row))
}
