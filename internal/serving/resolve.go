package serving

import (
	"math"
	"strings"

	"github.com/wonny/delaycast/internal/contracts"
)

// RiskSource looks up customer risk scores. *artifact.Model satisfies it.
type RiskSource interface {
	RiskScore(customerID string) (float64, bool)
}

// resolve validates req and fills the derived inputs.
//
// order_value defaults to price * quantity. The risk score comes from the
// request, else from the risk table by customer_id (population rate when
// unseen). A request with neither is rejected.
func resolve(req contracts.PredictionRequest, risk RiskSource) (resolved, error) {
	var r resolved

	if req.Price == nil {
		return r, required(contracts.FeaturePrice)
	}
	if !finite(*req.Price) || *req.Price < 0 {
		return r, invalid(contracts.FeaturePrice, "must be a non-negative number")
	}
	if req.Quantity == nil {
		return r, required(contracts.FeatureQuantity)
	}
	if !whole(*req.Quantity) {
		return r, invalid(contracts.FeatureQuantity, "must be a whole number")
	}
	if *req.Quantity < 0 {
		return r, invalid(contracts.FeatureQuantity, "must not be negative")
	}

	cats := []struct {
		name  string
		value *string
		dst   *string
	}{
		{contracts.FeatureCategory, req.Category, &r.Category},
		{contracts.FeatureCustomerSegment, req.CustomerSegment, &r.CustomerSegment},
		{contracts.FeatureChannel, req.Channel, &r.Channel},
		{contracts.FeatureDeviceType, req.DeviceType, &r.DeviceType},
	}
	for _, c := range cats {
		if c.value == nil {
			return r, required(c.name)
		}
		v := strings.TrimSpace(*c.value)
		if v == "" {
			return r, invalid(c.name, "must not be empty")
		}
		*c.dst = v
	}

	if req.OrderDayOfWeek == nil {
		return r, required(contracts.FeatureOrderDayOfWeek)
	}
	if !whole(*req.OrderDayOfWeek) {
		return r, invalid(contracts.FeatureOrderDayOfWeek, "must be a whole number")
	}
	if *req.OrderDayOfWeek < 0 || *req.OrderDayOfWeek > 6 {
		return r, invalid(contracts.FeatureOrderDayOfWeek, "must be between 0 (Monday) and 6 (Sunday)")
	}
	if req.OrderMonth == nil {
		return r, required(contracts.FeatureOrderMonth)
	}
	if !whole(*req.OrderMonth) {
		return r, invalid(contracts.FeatureOrderMonth, "must be a whole number")
	}
	if *req.OrderMonth < 1 || *req.OrderMonth > 12 {
		return r, invalid(contracts.FeatureOrderMonth, "must be between 1 and 12")
	}

	r.Price = *req.Price
	r.Quantity = *req.Quantity
	r.OrderDayOfWeek = int(*req.OrderDayOfWeek)
	r.OrderMonth = int(*req.OrderMonth)

	if req.OrderValue != nil {
		if !finite(*req.OrderValue) || *req.OrderValue < 0 {
			return r, invalid(contracts.FeatureOrderValue, "must be a non-negative number")
		}
		r.OrderValue = *req.OrderValue
	} else {
		r.OrderValue = contracts.OrderValue(r.Price, r.Quantity)
	}

	switch {
	case req.CustomerRiskScore != nil:
		score := *req.CustomerRiskScore
		if !finite(score) || score < 0 || score > 1 {
			return r, invalid(contracts.FeatureCustomerRiskScore, "must be between 0 and 1")
		}
		r.CustomerRiskScore = score
	case req.CustomerID != nil && strings.TrimSpace(*req.CustomerID) != "":
		r.CustomerRiskScore, _ = risk.RiskScore(strings.TrimSpace(*req.CustomerID))
	default:
		return r, invalid(contracts.FeatureCustomerRiskScore, "required unless "+contracts.ColCustomerID+" is given")
	}

	return r, nil
}

// OrderFeatures converts a request to the feature row the model sees.
// It is exposed for the CLI, which prints the resolved inputs.
func OrderFeatures(req contracts.PredictionRequest, risk RiskSource) (*contracts.FeatureTable, error) {
	r, err := resolve(req, risk)
	if err != nil {
		return nil, err
	}
	return r.table(), nil
}

func required(field string) error {
	return &contracts.SchemaMismatchError{Field: field, Reason: "is required"}
}

func invalid(field, reason string) error {
	return &contracts.SchemaMismatchError{Field: field, Reason: reason}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func whole(v float64) bool {
	return finite(v) && v == math.Trunc(v)
}
