package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLogisticRegression_Fit(t *testing.T) {
	x, y := blobs(400, 3)

	m := &LogisticRegression{C: 1, MaxIter: 1000}
	require.NoError(t, m.Fit(x, y))

	require.Len(t, m.Weights, 3)
	assert.Greater(t, m.Weights[0], 0.5)
	assert.Greater(t, m.Weights[1], 0.5)
	// the noise column stays small
	assert.Less(t, m.Weights[2]*m.Weights[2], m.Weights[0]*m.Weights[0])

	assert.Greater(t, m.Score([]float64{2, 2, 0}), 0.9)
	assert.Less(t, m.Score([]float64{-2, -2, 0}), 0.1)
}

func TestLogisticRegression_Regularization(t *testing.T) {
	x, y := blobs(200, 4)

	strong := &LogisticRegression{C: 0.01, MaxIter: 1000}
	weak := &LogisticRegression{C: 100, MaxIter: 1000}
	require.NoError(t, strong.Fit(x, y))
	require.NoError(t, weak.Fit(x, y))

	norm := func(w []float64) float64 {
		return mat.Norm(mat.NewVecDense(len(w), w), 2)
	}
	assert.Less(t, norm(strong.Weights), norm(weak.Weights))
}

func TestLogisticRegression_InvalidC(t *testing.T) {
	x, y := blobs(10, 5)
	assert.Error(t, (&LogisticRegression{C: 0}).Fit(x, y))
}

func TestLogisticRegression_Unfitted(t *testing.T) {
	assert.Equal(t, 0.0, (&LogisticRegression{}).Score([]float64{1, 2, 3}))
}

func TestLogisticRegression_IterationLimit(t *testing.T) {
	x, y := blobs(200, 4)

	m := &LogisticRegression{C: 1, MaxIter: 1}
	require.NoError(t, m.Fit(x, y))
	assert.Len(t, m.Weights, 3)
}

func TestLogisticRegression_NonFiniteInput(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, math.Inf(1), 3})
	y := []int{0, 0, 1, 1}

	m := &LogisticRegression{C: 1}
	assert.Error(t, m.Fit(x, y))
	assert.Empty(t, m.Weights)
}
