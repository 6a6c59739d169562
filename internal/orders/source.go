// Package orders loads raw e-commerce orders and imputes missing values
// before the feature builder sees them.
package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/delaycast/internal/contracts"
)

// Source loads the raw order history used for training
// ⭐ SSOT: 학습 데이터는 Source 구현체를 통해서만 로드
type Source interface {
	Name() string
	Load(ctx context.Context) ([]contracts.Order, *contracts.DataQualitySnapshot, error)
}

// DefaultDateLayouts are tried in order for order_date and shipping_date
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07",
	"01/02/2006",
}

// missingMarkers are cell values treated as absent, besides the empty string
var missingMarkers = map[string]struct{}{
	"na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {},
}

// rawTable holds the required columns as strings. An empty cell is missing.
type rawTable struct {
	rows  int
	cells map[string][]string
}

func newRawTable() *rawTable {
	cells := make(map[string][]string, len(contracts.RequiredRawColumns()))
	for _, col := range contracts.RequiredRawColumns() {
		cells[col] = nil
	}
	return &rawTable{cells: cells}
}

// appendRow adds one row; values are keyed by raw column name
func (t *rawTable) appendRow(values map[string]string) {
	for col := range t.cells {
		v := strings.TrimSpace(values[col])
		if isMissing(v) {
			v = ""
		}
		t.cells[col] = append(t.cells[col], v)
	}
	t.rows++
}

func isMissing(v string) bool {
	if v == "" {
		return true
	}
	_, ok := missingMarkers[strings.ToLower(v)]
	return ok
}

// toOrders imputes every column, parses types and builds the order list.
// Row numbers in errors are 1-based data rows (the header is not counted).
func (t *rawTable) toOrders(source string, layouts []string) ([]contracts.Order, *contracts.DataQualitySnapshot, error) {
	if t.rows == 0 {
		return nil, nil, &contracts.DataError{Op: "load", Err: contracts.ErrEmptyDataset}
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	snapshot := &contracts.DataQualitySnapshot{
		LoadedAt:  time.Now(),
		Source:    source,
		TotalRows: t.rows,
		Coverage:  make(map[string]float64, len(t.cells)),
		Imputed:   make(map[string]int, len(t.cells)),
	}

	numeric := make(map[string][]float64, len(contracts.RawNumericColumns))
	for _, col := range contracts.RawNumericColumns {
		values, filled, err := imputeNumeric(col, t.cells[col])
		if err != nil {
			return nil, nil, err
		}
		numeric[col] = values
		snapshot.Imputed[col] = filled
		snapshot.Coverage[col] = float64(t.rows-filled) / float64(t.rows)
	}

	text := make(map[string][]string, len(contracts.RawCategoricalColumns))
	for _, col := range contracts.RawCategoricalColumns {
		values, filled, err := imputeCategorical(col, t.cells[col])
		if err != nil {
			return nil, nil, err
		}
		text[col] = values
		snapshot.Imputed[col] = filled
		snapshot.Coverage[col] = float64(t.rows-filled) / float64(t.rows)
	}

	out := make([]contracts.Order, t.rows)
	for i := 0; i < t.rows; i++ {
		orderDate, err := parseDate(text[contracts.ColOrderDate][i], layouts)
		if err != nil {
			return nil, nil, &contracts.DataError{Op: "load", Column: contracts.ColOrderDate, Row: i + 1, Err: err}
		}
		shippingDate, err := parseDate(text[contracts.ColShippingDate][i], layouts)
		if err != nil {
			return nil, nil, &contracts.DataError{Op: "load", Column: contracts.ColShippingDate, Row: i + 1, Err: err}
		}

		out[i] = contracts.Order{
			CustomerID:      text[contracts.ColCustomerID][i],
			Price:           numeric[contracts.ColPrice][i],
			Quantity:        numeric[contracts.ColQuantity][i],
			Category:        text[contracts.ColCategory][i],
			CustomerSegment: text[contracts.ColCustomerSegment][i],
			Channel:         text[contracts.ColChannel][i],
			DeviceType:      text[contracts.ColDeviceType][i],
			OrderDate:       orderDate,
			ShippingDate:    shippingDate,
		}
	}

	return out, snapshot, nil
}

// parseDate tries each layout in order
func parseDate(v string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", contracts.ErrUnparseableValue, v)
}

func parseNumber(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q", contracts.ErrUnparseableValue, v)
	}
	return f, nil
}
