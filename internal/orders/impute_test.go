package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/internal/contracts"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single", []float64{4}, 4},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.values))
		})
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
		ok     bool
	}{
		{"clear winner", []string{"web", "app", "web"}, "web", true},
		{"tie picks smallest", []string{"web", "app", "", "web", "app"}, "app", true},
		{"ignores empty", []string{"", "", "tablet"}, "tablet", true},
		{"all empty", []string{"", ""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mode(tt.values)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImputeNumeric(t *testing.T) {
	values, filled, err := imputeNumeric(contracts.ColPrice, []string{"1.5", "", "2.5", ""})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.0, 2.5, 2.0}, values)
	assert.Equal(t, 2, filled)

	_, _, err = imputeNumeric(contracts.ColPrice, []string{"", ""})
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
}

func TestImputeCategorical(t *testing.T) {
	values, filled, err := imputeCategorical(contracts.ColChannel, []string{"web", "", "app", "web"})
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "web", "app", "web"}, values)
	assert.Equal(t, 1, filled)
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "NA", "n/a", "NaN", "null", "None"} {
		assert.True(t, isMissing(v), v)
	}
	for _, v := range []string{"0", "Nancy", "web"} {
		assert.False(t, isMissing(v), v)
	}
}
