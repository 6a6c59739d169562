package contracts

import (
	"fmt"
	"sort"
)

// Model input column names
const (
	FeaturePrice             = "price"
	FeatureQuantity          = "quantity"
	FeatureOrderValue        = "order_value"
	FeatureOrderDayOfWeek    = "order_dayofweek"
	FeatureOrderMonth        = "order_month"
	FeatureCustomerRiskScore = "customer_risk_score"

	FeatureCategory        = "category"
	FeatureCustomerSegment = "customer_segment"
	FeatureChannel         = "channel"
	FeatureDeviceType      = "device_type"
)

// FeatureSchema describes the model input layout
// ⭐ SSOT: 학습과 서빙이 공유하는 컬럼 순서
type FeatureSchema struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// DefaultFeatureSchema returns the Feature Set in its fixed column order
func DefaultFeatureSchema() FeatureSchema {
	return FeatureSchema{
		Numeric: []string{
			FeaturePrice,
			FeatureQuantity,
			FeatureOrderValue,
			FeatureOrderDayOfWeek,
			FeatureOrderMonth,
			FeatureCustomerRiskScore,
		},
		Categorical: []string{
			FeatureCategory,
			FeatureCustomerSegment,
			FeatureChannel,
			FeatureDeviceType,
		},
	}
}

// Equal reports whether two schemas have the same columns in the same order
func (s FeatureSchema) Equal(other FeatureSchema) bool {
	return equalStrings(s.Numeric, other.Numeric) && equalStrings(s.Categorical, other.Categorical)
}

// Columns returns numeric then categorical column names
func (s FeatureSchema) Columns() []string {
	cols := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	cols = append(cols, s.Numeric...)
	cols = append(cols, s.Categorical...)
	return cols
}

// FeatureTable is a columnar feature matrix keyed by column name
type FeatureTable struct {
	Numeric     map[string][]float64
	Categorical map[string][]string
}

// NewFeatureTable creates an empty table
func NewFeatureTable() *FeatureTable {
	return &FeatureTable{
		Numeric:     make(map[string][]float64),
		Categorical: make(map[string][]string),
	}
}

// Len returns the number of rows, taken from the first column in name order
func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	if keys := sortedKeys(t.Numeric); len(keys) > 0 {
		return len(t.Numeric[keys[0]])
	}
	if keys := sortedKeys(t.Categorical); len(keys) > 0 {
		return len(t.Categorical[keys[0]])
	}
	return 0
}

// Validate checks that every schema column is present and all columns have equal length.
// The returned error wraps ErrMissingColumn or ErrRaggedTable.
func (t *FeatureTable) Validate(schema FeatureSchema) error {
	_, err := t.Rows(schema)
	return err
}

// Rows validates t against schema and returns the row count of the schema
// columns. Columns outside the schema are ignored.
func (t *FeatureTable) Rows(schema FeatureSchema) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: nil feature table", ErrMissingColumn)
	}

	n := -1
	for _, name := range schema.Numeric {
		col, ok := t.Numeric[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		if n >= 0 && len(col) != n {
			return 0, fmt.Errorf("%w: column %s has %d rows, want %d", ErrRaggedTable, name, len(col), n)
		}
		n = len(col)
	}
	for _, name := range schema.Categorical {
		col, ok := t.Categorical[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		if n >= 0 && len(col) != n {
			return 0, fmt.Errorf("%w: column %s has %d rows, want %d", ErrRaggedTable, name, len(col), n)
		}
		n = len(col)
	}

	return max(n, 0), nil
}

// Subset returns a new table holding only the given row indices, in order
func (t *FeatureTable) Subset(rows []int) *FeatureTable {
	out := NewFeatureTable()
	for name, col := range t.Numeric {
		sub := make([]float64, len(rows))
		for i, r := range rows {
			sub[i] = col[r]
		}
		out.Numeric[name] = sub
	}
	for name, col := range t.Categorical {
		sub := make([]string, len(rows))
		for i, r := range rows {
			sub[i] = col[r]
		}
		out.Categorical[name] = sub
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
