package contracts

import "time"

// PredictionRequest is the served input schema.
// Pointer fields distinguish "absent" from zero values. Whole-number fields
// decode as float64 so 2.0 is accepted; resolution rejects fractions.
// ⭐ SSOT: /predict 요청 스키마
type PredictionRequest struct {
	Price             *float64 `json:"price"`
	Quantity          *float64 `json:"quantity"`
	Category          *string  `json:"category"`
	CustomerSegment   *string  `json:"customer_segment"`
	Channel           *string  `json:"channel"`
	DeviceType        *string  `json:"device_type"`
	OrderDayOfWeek    *float64 `json:"order_dayofweek"`
	OrderMonth        *float64 `json:"order_month"`
	CustomerRiskScore *float64 `json:"customer_risk_score,omitempty"`
	OrderValue        *float64 `json:"order_value,omitempty"` // defaults to price * quantity
	CustomerID        *string  `json:"customer_id,omitempty"` // risk lookup when the score is absent
}

// PredictionResponse is returned by /predict
type PredictionResponse struct {
	DeliveryDelayed  int     `json:"delivery_delayed"`
	DelayProbability float64 `json:"delay_probability"` // [0,1], 3 decimals
}

// CandidateMetrics holds held-out evaluation of one candidate
type CandidateMetrics struct {
	Name      string             `json:"name"`
	Accuracy  float64            `json:"accuracy"`
	Precision float64            `json:"precision"`
	Recall    float64            `json:"recall"`
	F1        float64            `json:"f1"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// ModelInfo describes a loaded artifact
type ModelInfo struct {
	RunID      string             `json:"run_id"`
	Schema     string             `json:"schema"`
	Candidate  string             `json:"candidate"`
	CreatedAt  time.Time          `json:"created_at"`
	Metrics    CandidateMetrics   `json:"metrics"`
	Candidates []CandidateMetrics `json:"candidates,omitempty"`
	Features   []string           `json:"features"`
	TrainRows  int                `json:"train_rows"`
	TestRows   int                `json:"test_rows"`
	RiskPrior  float64            `json:"risk_prior"` // population delay rate of the training partition
	Path       string             `json:"path,omitempty"`
	LoadedAt   time.Time          `json:"loaded_at,omitempty"`
}
