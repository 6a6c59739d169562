// Package preprocess standardizes numeric features and one-hot encodes
// categorical ones. A Transform is fitted once and applied many times.
package preprocess

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/delaycast/internal/contracts"
)

// zeroScale treats a standard deviation below 10 machine epsilons as constant
const zeroScale = 10 * 0x1p-52

// Transform holds the fitted scaling and vocabulary state.
// Fields are exported for gob; treat them as read-only after Fit.
type Transform struct {
	Schema contracts.FeatureSchema
	Means  []float64  // per numeric column
	Scales []float64  // population std, 1 for constant columns
	Vocab  [][]string // per categorical column, sorted
	Fitted bool
}

// New creates an unfitted transform for schema
func New(schema contracts.FeatureSchema) *Transform {
	return &Transform{Schema: schema}
}

// Fit learns means, scales and vocabularies from table
func (t *Transform) Fit(table *contracts.FeatureTable) error {
	rows, err := table.Rows(t.Schema)
	if err != nil {
		return fmt.Errorf("fit transform: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("fit transform: %w", contracts.ErrEmptyDataset)
	}

	means := make([]float64, len(t.Schema.Numeric))
	scales := make([]float64, len(t.Schema.Numeric))
	for j, name := range t.Schema.Numeric {
		mean, std := stat.PopMeanStdDev(table.Numeric[name], nil)
		means[j] = mean
		scales[j] = std
		if std < zeroScale {
			scales[j] = 1
		}
	}

	vocab := make([][]string, len(t.Schema.Categorical))
	for j, name := range t.Schema.Categorical {
		seen := make(map[string]struct{})
		for _, v := range table.Categorical[name] {
			seen[v] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		vocab[j] = values
	}

	t.Means = means
	t.Scales = scales
	t.Vocab = vocab
	t.Fitted = true
	return nil
}

// Width returns the number of output columns
func (t *Transform) Width() int {
	w := len(t.Schema.Numeric)
	for _, v := range t.Vocab {
		w += len(v)
	}
	return w
}

// Transform maps table to the design matrix: numeric block in schema order,
// then one one-hot block per categorical column. A category outside the
// fitted vocabulary encodes as an all-zero block.
func (t *Transform) Transform(table *contracts.FeatureTable) (*mat.Dense, error) {
	if !t.Fitted {
		return nil, contracts.ErrNotFitted
	}
	rows, err := table.Rows(t.Schema)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("transform: %w", contracts.ErrEmptyDataset)
	}

	out := mat.NewDense(rows, t.Width(), nil)

	for j, name := range t.Schema.Numeric {
		col := table.Numeric[name]
		for i := 0; i < rows; i++ {
			out.Set(i, j, (col[i]-t.Means[j])/t.Scales[j])
		}
	}

	offset := len(t.Schema.Numeric)
	for j, name := range t.Schema.Categorical {
		col := table.Categorical[name]
		vocab := t.Vocab[j]
		for i := 0; i < rows; i++ {
			if k, ok := indexOf(vocab, col[i]); ok {
				out.Set(i, offset+k, 1)
			}
		}
		offset += len(vocab)
	}

	return out, nil
}

// FeatureNames returns output column names, "column=value" for one-hot columns
func (t *Transform) FeatureNames() []string {
	names := make([]string, 0, t.Width())
	names = append(names, t.Schema.Numeric...)
	for j, name := range t.Schema.Categorical {
		if j >= len(t.Vocab) {
			break
		}
		for _, v := range t.Vocab[j] {
			names = append(names, name+"="+v)
		}
	}
	return names
}

func indexOf(sorted []string, v string) (int, bool) {
	k := sort.SearchStrings(sorted, v)
	return k, k < len(sorted) && sorted[k] == v
}
