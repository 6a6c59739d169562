package features

import (
	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/contracts"
)

// Assemble 리스크 점수 조인 후 Feature Set 컬럼만 남김
// Unseen customers get the table's prior. Shipping date, delivery days and
// the customer id never reach the output.
func Assemble(derived []Derived, table *RiskTable) (*contracts.FeatureTable, []int) {
	n := len(derived)
	out := contracts.NewFeatureTable()

	price := make([]float64, n)
	quantity := make([]float64, n)
	value := make([]float64, n)
	dow := make([]float64, n)
	month := make([]float64, n)
	risk := make([]float64, n)

	category := make([]string, n)
	segment := make([]string, n)
	channel := make([]string, n)
	device := make([]string, n)

	y := make([]int, n)

	for i, d := range derived {
		score, _ := table.Lookup(d.CustomerID)

		price[i] = d.Price
		quantity[i] = d.Quantity
		value[i] = d.OrderValue
		dow[i] = float64(d.OrderDayOfWeek)
		month[i] = float64(d.OrderMonth)
		risk[i] = score

		category[i] = d.Category
		segment[i] = d.CustomerSegment
		channel[i] = d.Channel
		device[i] = d.DeviceType

		y[i] = d.Delayed
	}

	out.Numeric[contracts.FeaturePrice] = price
	out.Numeric[contracts.FeatureQuantity] = quantity
	out.Numeric[contracts.FeatureOrderValue] = value
	out.Numeric[contracts.FeatureOrderDayOfWeek] = dow
	out.Numeric[contracts.FeatureOrderMonth] = month
	out.Numeric[contracts.FeatureCustomerRiskScore] = risk

	out.Categorical[contracts.FeatureCategory] = category
	out.Categorical[contracts.FeatureCustomerSegment] = segment
	out.Categorical[contracts.FeatureChannel] = channel
	out.Categorical[contracts.FeatureDeviceType] = device

	return out, y
}

// Builder runs derive, risk fitting and assembly over one population
type Builder struct {
	smoothing float64
	log       zerolog.Logger
}

// NewBuilder 새 Feature Builder 생성
func NewBuilder(smoothing float64, log zerolog.Logger) *Builder {
	return &Builder{
		smoothing: smoothing,
		log:       log.With().Str("component", "features.builder").Logger(),
	}
}

// Build derives features for orders and fits the risk table on the same orders.
// The trainer splits first and fits on the training partition; Build is for
// callers that score a population against itself (evaluate, exploration).
func (b *Builder) Build(orders []contracts.Order) (*contracts.FeatureTable, []int, *RiskTable, error) {
	derived, err := Derive(orders)
	if err != nil {
		return nil, nil, nil, err
	}

	table := FitRiskTable(derived, b.smoothing)
	x, y := Assemble(derived, table)

	if err := x.Validate(contracts.DefaultFeatureSchema()); err != nil {
		return nil, nil, nil, &contracts.DataError{Op: "derive", Err: err}
	}

	counts := Classes(y)
	b.log.Debug().
		Int("rows", len(y)).
		Int("delayed", counts[1]).
		Int("customers", table.Len()).
		Float64("prior", table.Prior).
		Msg("features built")

	return x, y, table, nil
}
