// Package features turns raw orders into the model feature table.
package features

import (
	"time"

	"github.com/wonny/delaycast/internal/contracts"
)

// SLADays is the delivery threshold: an order is delayed when it takes longer
const SLADays = 5

// Derived is an order with its label and calendar fields
type Derived struct {
	contracts.Order

	DeliveryDays   int // intermediate only, never a model input
	Delayed        int // label: 1 iff DeliveryDays > SLADays
	OrderValue     float64
	OrderDayOfWeek int // Monday = 0
	OrderMonth     int // 1..12
	IsPeakSeason   int // 1 for October to December
}

// Derive 주문 목록에서 라벨과 파생 필드 계산
func Derive(orders []contracts.Order) ([]Derived, error) {
	if len(orders) == 0 {
		return nil, &contracts.DataError{Op: "derive", Err: contracts.ErrEmptyDataset}
	}

	out := make([]Derived, len(orders))
	for i, o := range orders {
		out[i] = DeriveOrder(o)
	}
	return out, nil
}

// DeriveOrder 단일 주문 파생
func DeriveOrder(o contracts.Order) Derived {
	days := DeliveryDays(o.OrderDate, o.ShippingDate)
	month := int(o.OrderDate.Month())

	d := Derived{
		Order:          o,
		DeliveryDays:   days,
		OrderValue:     contracts.OrderValue(o.Price, o.Quantity),
		OrderDayOfWeek: DayOfWeek(o.OrderDate),
		OrderMonth:     month,
	}
	if days > SLADays {
		d.Delayed = 1
	}
	if month >= 10 {
		d.IsPeakSeason = 1
	}
	return d
}

// DeliveryDays returns the whole days between order and shipping, truncated
func DeliveryDays(orderDate, shippingDate time.Time) int {
	return int(shippingDate.Sub(orderDate) / (24 * time.Hour))
}

// DayOfWeek maps time.Weekday (Sunday = 0) to Monday = 0 .. Sunday = 6
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Labels extracts the delayed flag of every row
func Labels(derived []Derived) []int {
	y := make([]int, len(derived))
	for i, d := range derived {
		y[i] = d.Delayed
	}
	return y
}

// Classes counts rows per label value
func Classes(y []int) map[int]int {
	counts := make(map[int]int, 2)
	for _, v := range y {
		counts[v]++
	}
	return counts
}

// Select returns the rows at the given indices, in order
func Select(derived []Derived, rows []int) []Derived {
	out := make([]Derived, len(rows))
	for i, r := range rows {
		out[i] = derived[r]
	}
	return out
}
