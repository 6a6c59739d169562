package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradientBoosting_Base(t *testing.T) {
	x, y := blobs(100, 20)

	m := &GradientBoosting{NEstimators: 1, MaxDepth: 1, LearningRate: 0.1}
	require.NoError(t, m.Fit(x, y))

	pos := 0
	for _, v := range y {
		pos += v
	}
	p := float64(pos) / float64(len(y))
	assert.InDelta(t, p, sigmoid(m.Base), 1e-9)
}

func TestGradientBoosting_MoreRoundsFitBetter(t *testing.T) {
	x, y := blobs(300, 21)

	few := &GradientBoosting{NEstimators: 2, MaxDepth: 2, LearningRate: 0.1}
	many := &GradientBoosting{NEstimators: 60, MaxDepth: 2, LearningRate: 0.1}
	require.NoError(t, few.Fit(x, y))
	require.NoError(t, many.Fit(x, y))

	assert.GreaterOrEqual(t, accuracy(t, many, x, y), accuracy(t, few, x, y))
	assert.Len(t, many.Trees, 60)
}

func TestGradientBoosting_InvalidParams(t *testing.T) {
	x, y := blobs(10, 22)
	assert.Error(t, (&GradientBoosting{NEstimators: 10}).Fit(x, y))
	assert.Error(t, (&GradientBoosting{LearningRate: 0.1}).Fit(x, y))
}
