// Package observability provides Prometheus metrics for training and serving.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Prediction metrics
	Predictions      *prometheus.CounterVec
	PredictionErrors *prometheus.CounterVec
	CacheResults     *prometheus.CounterVec

	// Model metrics
	ModelReloads  *prometheus.CounterVec
	ModelLoadedAt prometheus.Gauge
	ModelInfo     *prometheus.GaugeVec

	// Training metrics
	TrainingRuns     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	CandidateF1      *prometheus.GaugeVec
	GridPoints       prometheus.Counter
}

// NewMetrics creates a Metrics instance on its own registry, including Go
// runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "delaycast"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "total",
			Help:      "Total number of predictions by predicted label",
		}, []string{"label"}),
		PredictionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "errors_total",
			Help:      "Total number of rejected or failed predictions by reason",
		}, []string{"reason"}),
		CacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "cache_total",
			Help:      "Prediction cache lookups by result",
		}, []string{"result"}),

		ModelReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "reloads_total",
			Help:      "Model artifact loads by result",
		}, []string{"result"}),
		ModelLoadedAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "loaded_timestamp",
			Help:      "Unix timestamp of the last successful model load",
		}),
		ModelInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "info",
			Help:      "Currently served model (value is always 1)",
		}, []string{"run_id", "candidate"}),

		TrainingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Total number of training runs by status",
		}, []string{"status"}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Training run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		CandidateF1: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "candidate_f1",
			Help:      "Held-out F1 of each candidate in the last run",
		}, []string{"candidate"}),
		GridPoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "grid_points_total",
			Help:      "Total number of grid search points evaluated",
		}),
	}
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records one HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordPrediction records a served prediction
func (m *Metrics) RecordPrediction(label int) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(strconv.Itoa(label)).Inc()
}

// RecordPredictionError records a rejected or failed prediction
func (m *Metrics) RecordPredictionError(reason string) {
	if m == nil {
		return
	}
	m.PredictionErrors.WithLabelValues(reason).Inc()
}

// RecordCache records a cache hit or miss
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheResults.WithLabelValues(result).Inc()
}

// RecordModelLoad records an artifact load attempt
func (m *Metrics) RecordModelLoad(runID, candidate string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ModelReloads.WithLabelValues("failure").Inc()
		return
	}
	m.ModelReloads.WithLabelValues("success").Inc()
	m.ModelLoadedAt.SetToCurrentTime()
	m.ModelInfo.Reset()
	m.ModelInfo.WithLabelValues(runID, candidate).Set(1)
}

// RecordTraining records a finished training run
func (m *Metrics) RecordTraining(status string, d time.Duration, f1ByCandidate map[string]float64) {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues(status).Inc()
	m.TrainingDuration.Observe(d.Seconds())
	for name, f1 := range f1ByCandidate {
		m.CandidateF1.WithLabelValues(name).Set(f1)
	}
}

// RecordGridPoint counts one evaluated grid search point
func (m *Metrics) RecordGridPoint() {
	if m == nil {
		return
	}
	m.GridPoints.Inc()
}
