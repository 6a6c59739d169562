package testutil

import (
	"math/rand"
	"time"

	"github.com/wonny/delaycast/internal/contracts"
)

var (
	categories = []string{"Books", "Electronics", "Fashion", "Home"}
	segments   = []string{"Consumer", "Corporate", "Small Business"}
	channels   = []string{"app", "marketplace", "web"}
	devices    = []string{"desktop", "mobile", "tablet"}
)

// SyntheticOrders generates n orders with a learnable delay signal:
// marketplace orders and a fixed set of slow customers ship late more often.
// The same seed always yields the same orders.
func SyntheticOrders(n int, seed int64) []contracts.Order {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := make([]contracts.Order, n)
	for i := range orders {
		customer := rng.Intn(40)
		channel := channels[rng.Intn(len(channels))]

		delayP := 0.15
		if channel == "marketplace" {
			delayP += 0.45
		}
		if customer < 8 {
			delayP += 0.3
		}

		days := 1 + rng.Intn(5)
		if rng.Float64() < delayP {
			days = 6 + rng.Intn(6)
		}

		orderDate := base.AddDate(0, 0, rng.Intn(365))
		orders[i] = contracts.Order{
			CustomerID:      customerID(customer),
			Price:           float64(500+rng.Intn(20000)) / 100,
			Quantity:        float64(1 + rng.Intn(5)),
			Category:        categories[rng.Intn(len(categories))],
			CustomerSegment: segments[rng.Intn(len(segments))],
			Channel:         channel,
			DeviceType:      devices[rng.Intn(len(devices))],
			OrderDate:       orderDate,
			ShippingDate:    orderDate.AddDate(0, 0, days),
		}
	}

	return orders
}

func customerID(n int) string {
	const digits = "0123456789"
	return "C" + string(digits[n/10%10]) + string(digits[n%10])
}
