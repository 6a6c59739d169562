package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test")

	m.RecordRequest(http.MethodPost, "/predict", 200, 15*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/predict", 422, time.Millisecond)
	m.RecordPrediction(1)
	m.RecordPrediction(1)
	m.RecordPredictionError("schema_mismatch")
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordGridPoint()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/predict", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/predict", "422")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Predictions.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionErrors.WithLabelValues("schema_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheResults.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GridPoints))
}

func TestMetrics_ModelLoad(t *testing.T) {
	m := NewMetrics("test")

	m.RecordModelLoad("run-1", "random_forest", nil)
	m.RecordModelLoad("run-2", "logistic_regression", nil)
	m.RecordModelLoad("", "", errors.New("corrupt"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("failure")))
	// only the latest model is reported
	assert.Equal(t, 1, testutil.CollectAndCount(m.ModelInfo))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelInfo.WithLabelValues("run-2", "logistic_regression")))
}

func TestMetrics_Training(t *testing.T) {
	m := NewMetrics("test")

	m.RecordTraining("success", 3*time.Second, map[string]float64{"decision_tree": 0.7, "random_forest": 0.8})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("success")))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.CandidateF1.WithLabelValues("random_forest")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test")
	m.RecordPrediction(0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_prediction_total{label="0"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", 200, time.Millisecond)
		m.RecordPrediction(1)
		m.RecordPredictionError("x")
		m.RecordCache(true)
		m.RecordModelLoad("a", "b", nil)
		m.RecordTraining("success", time.Second, nil)
		m.RecordGridPoint()
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
