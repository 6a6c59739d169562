package orders

import (
	"fmt"
	"sort"

	"github.com/wonny/delaycast/internal/contracts"
)

// imputeNumeric parses a numeric column and fills missing cells with the median
// of the present values. It returns the filled column and the number of filled cells.
func imputeNumeric(col string, cells []string) ([]float64, int, error) {
	values := make([]float64, len(cells))
	present := make([]float64, 0, len(cells))
	missing := make([]bool, len(cells))

	for i, cell := range cells {
		if cell == "" {
			missing[i] = true
			continue
		}
		v, err := parseNumber(cell)
		if err != nil {
			return nil, 0, &contracts.DataError{Op: "load", Column: col, Row: i + 1, Err: err}
		}
		values[i] = v
		present = append(present, v)
	}

	if len(present) == 0 {
		return nil, 0, &contracts.DataError{
			Op:     "impute",
			Column: col,
			Err:    fmt.Errorf("%w: no values to impute from", contracts.ErrMissingColumn),
		}
	}

	fill := median(present)
	filled := 0
	for i := range values {
		if missing[i] {
			values[i] = fill
			filled++
		}
	}

	return values, filled, nil
}

// imputeCategorical fills missing cells with the most frequent value.
// Ties resolve to the lexicographically smallest value.
func imputeCategorical(col string, cells []string) ([]string, int, error) {
	fill, ok := mode(cells)
	if !ok {
		return nil, 0, &contracts.DataError{
			Op:     "impute",
			Column: col,
			Err:    fmt.Errorf("%w: no values to impute from", contracts.ErrMissingColumn),
		}
	}

	values := make([]string, len(cells))
	filled := 0
	for i, cell := range cells {
		if cell == "" {
			values[i] = fill
			filled++
			continue
		}
		values[i] = cell
	}

	return values, filled, nil
}

// median returns the middle value, averaging the two middle values for even counts.
// values is sorted in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// mode returns the most frequent non-empty value
func mode(values []string) (string, bool) {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, true
}
