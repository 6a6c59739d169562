// Package serving answers single-order delay predictions from the loaded artifact.
package serving

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/artifact"
	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/model"
	"github.com/wonny/delaycast/internal/observability"
	"github.com/wonny/delaycast/pkg/redis"
)

// Cache stores prediction responses. *redis.Cache and *MemoryCache satisfy it.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service holds the active model behind an atomic pointer.
// Requests read it without locks and a reload swaps it.
// ⭐ SSOT: 서빙 경로의 유일한 모델 보관소
type Service struct {
	model   atomic.Pointer[artifact.Model]
	cache   Cache
	ttl     time.Duration
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewService creates a Service without a model. cache may be nil.
func NewService(cache Cache, ttl time.Duration, metrics *observability.Metrics, log zerolog.Logger) *Service {
	return &Service{
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		log:     log.With().Str("component", "serving.service").Logger(),
	}
}

// Swap makes m the active model. In-flight requests finish on the old one.
func (s *Service) Swap(m *artifact.Model) {
	if m == nil {
		return
	}
	s.model.Store(m)
	info := m.Info()
	s.metrics.RecordModelLoad(info.RunID, info.Candidate, nil)
	s.log.Info().
		Str("run_id", info.RunID).
		Str("candidate", info.Candidate).
		Str("path", info.Path).
		Msg("model activated")
}

// ReloadFailed records a failed reload; the active model is unchanged
func (s *Service) ReloadFailed(err error) {
	s.metrics.RecordModelLoad("", "", err)
}

// Model returns the active model or nil
func (s *Service) Model() *artifact.Model {
	return s.model.Load()
}

// Ready reports whether a model is loaded
func (s *Service) Ready() bool {
	return s.model.Load() != nil
}

// resolved is the complete feature row of one request.
// Its JSON encoding is the cache key material.
type resolved struct {
	Price             float64 `json:"price"`
	Quantity          float64 `json:"quantity"`
	OrderValue        float64 `json:"order_value"`
	OrderDayOfWeek    int     `json:"order_dayofweek"`
	OrderMonth        int     `json:"order_month"`
	CustomerRiskScore float64 `json:"customer_risk_score"`
	Category          string  `json:"category"`
	CustomerSegment   string  `json:"customer_segment"`
	Channel           string  `json:"channel"`
	DeviceType        string  `json:"device_type"`
}

func (r resolved) table() *contracts.FeatureTable {
	t := contracts.NewFeatureTable()
	t.Numeric[contracts.FeaturePrice] = []float64{r.Price}
	t.Numeric[contracts.FeatureQuantity] = []float64{r.Quantity}
	t.Numeric[contracts.FeatureOrderValue] = []float64{r.OrderValue}
	t.Numeric[contracts.FeatureOrderDayOfWeek] = []float64{float64(r.OrderDayOfWeek)}
	t.Numeric[contracts.FeatureOrderMonth] = []float64{float64(r.OrderMonth)}
	t.Numeric[contracts.FeatureCustomerRiskScore] = []float64{r.CustomerRiskScore}
	t.Categorical[contracts.FeatureCategory] = []string{r.Category}
	t.Categorical[contracts.FeatureCustomerSegment] = []string{r.CustomerSegment}
	t.Categorical[contracts.FeatureChannel] = []string{r.Channel}
	t.Categorical[contracts.FeatureDeviceType] = []string{r.DeviceType}
	return t
}

// Predict validates req, resolves the customer risk score and scores the order.
// Invalid input returns *contracts.SchemaMismatchError; no model returns ErrModelNotLoaded.
func (s *Service) Predict(ctx context.Context, req contracts.PredictionRequest) (contracts.PredictionResponse, error) {
	m := s.model.Load()
	if m == nil {
		s.metrics.RecordPredictionError("no_model")
		return contracts.PredictionResponse{}, contracts.ErrModelNotLoaded
	}

	row, err := resolve(req, m)
	if err != nil {
		s.metrics.RecordPredictionError("schema")
		return contracts.PredictionResponse{}, err
	}

	key := ""
	if s.cache != nil {
		if canonical, err := json.Marshal(row); err == nil {
			key = redis.PredictionKey(m.RunID(), canonical)
			var cached contracts.PredictionResponse
			hit, err := s.cache.Get(ctx, key, &cached)
			if err != nil {
				s.log.Warn().Err(err).Msg("prediction cache read failed")
			}
			s.metrics.RecordCache(hit)
			if hit {
				s.metrics.RecordPrediction(cached.DeliveryDelayed)
				return cached, nil
			}
		}
	}

	proba, err := m.PredictProbability(row.table())
	if err != nil {
		s.metrics.RecordPredictionError("internal")
		return contracts.PredictionResponse{}, fmt.Errorf("predict: %w", err)
	}

	resp := contracts.PredictionResponse{
		DeliveryDelayed:  label(proba[0]),
		DelayProbability: Round3(proba[0]),
	}
	s.metrics.RecordPrediction(resp.DeliveryDelayed)

	if key != "" {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("prediction cache write failed")
		}
	}

	return resp, nil
}

func label(p float64) int {
	if p > model.Threshold {
		return 1
	}
	return 0
}

// Round3 rounds a probability to 3 decimals
func Round3(p float64) float64 {
	return math.Round(p*1000) / 1000
}
