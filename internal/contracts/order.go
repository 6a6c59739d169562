package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one raw e-commerce order after imputation
// ⭐ SSOT: orders → features 원천 레코드
type Order struct {
	CustomerID      string    `json:"customer_id"`
	Price           float64   `json:"price"`
	Quantity        float64   `json:"quantity"`
	Category        string    `json:"category"`
	CustomerSegment string    `json:"customer_segment"`
	Channel         string    `json:"channel"`
	DeviceType      string    `json:"device_type"`
	OrderDate       time.Time `json:"order_date"`
	ShippingDate    time.Time `json:"shipping_date"` // assumed >= OrderDate
}

// Raw column names expected in every order source
const (
	ColCustomerID      = "customer_id"
	ColPrice           = "price"
	ColQuantity        = "quantity"
	ColCategory        = "category"
	ColCustomerSegment = "customer_segment"
	ColChannel         = "channel"
	ColDeviceType      = "device_type"
	ColOrderDate       = "order_date"
	ColShippingDate    = "shipping_date"
)

// RawNumericColumns are imputed with the column median
var RawNumericColumns = []string{ColPrice, ColQuantity}

// RawCategoricalColumns are imputed with the column mode.
// Date strings and the customer id are object columns in the raw export.
var RawCategoricalColumns = []string{
	ColCustomerID,
	ColCategory,
	ColCustomerSegment,
	ColChannel,
	ColDeviceType,
	ColOrderDate,
	ColShippingDate,
}

// RequiredRawColumns returns every column an order source must provide
func RequiredRawColumns() []string {
	cols := make([]string, 0, len(RawNumericColumns)+len(RawCategoricalColumns))
	cols = append(cols, RawNumericColumns...)
	cols = append(cols, RawCategoricalColumns...)
	return cols
}

// OrderValue returns price * quantity using decimal arithmetic so that
// 29.99 * 2 is 59.98 and not 59.980000000000004.
func OrderValue(price, quantity float64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).InexactFloat64()
}
