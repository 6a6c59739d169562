package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wonny/delaycast/internal/api/handlers"
	"github.com/wonny/delaycast/internal/observability"
	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/internal/serving"
	"github.com/wonny/delaycast/pkg/config"
)

// Deps are the collaborators of the HTTP surface.
// Runs and Metrics are optional.
type Deps struct {
	Service *serving.Service
	Runs    runs.Store
	Metrics *observability.Metrics
	Config  *config.Config
	Log     zerolog.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	predictHandler := handlers.NewPredictHandler(d.Service, d.Log)
	modelHandler := handlers.NewModelHandler(d.Service)

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/ready", modelHandler.Ready).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	// Prediction, rate limited
	limit := rateLimitMiddleware(d.Config.RateLimit, d.Metrics)
	r.Handle("/predict", limit(http.HandlerFunc(predictHandler.Predict))).Methods("POST")

	// API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/model", modelHandler.GetModel).Methods("GET")
	if d.Runs != nil {
		runsHandler := handlers.NewRunsHandler(d.Runs, d.Log)
		api.HandleFunc("/runs", runsHandler.ListRuns).Methods("GET")
		api.HandleFunc("/runs/{id}", runsHandler.GetRun).Methods("GET")
	}

	// Monitoring
	if d.Config.MetricsEnabled && d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(d.Log, d.Metrics))
	r.Use(recoveryMiddleware(d.Log))

	return r
}

// healthCheckHandler returns server liveness
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// rootHandler returns the service banner
func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "delaycast",
		"message": "Delivery delay prediction API. POST an order to /predict.",
	})
}
