package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/internal/api/handlers"
	"github.com/wonny/delaycast/internal/artifact/artifacttest"
	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/observability"
	"github.com/wonny/delaycast/internal/runs"
	"github.com/wonny/delaycast/internal/serving"
	"github.com/wonny/delaycast/pkg/config"
)

const orderJSON = `{
	"price": 29.99,
	"quantity": 2,
	"category": "Electronics",
	"customer_segment": "Consumer",
	"channel": "web",
	"device_type": "mobile",
	"order_dayofweek": 2,
	"order_month": 11,
	"customer_risk_score": 0.3
}`

type fakeRuns struct {
	list []runs.Run
	err  error
}

func (f *fakeRuns) Save(context.Context, runs.Run) error { return f.err }

func (f *fakeRuns) Get(_ context.Context, id uuid.UUID) (*runs.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.list {
		if f.list[i].RunID == id {
			return &f.list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", runs.ErrNotFound, id)
}

func (f *fakeRuns) List(context.Context, int) ([]runs.Run, error) { return f.list, f.err }

type testServer struct {
	*httptest.Server
	svc     *serving.Service
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, loaded bool, mutate func(*config.Config), store runs.Store) *testServer {
	t.Helper()

	cfg := &config.Config{Env: "development", MetricsEnabled: true}
	if mutate != nil {
		mutate(cfg)
	}
	metrics := observability.NewMetrics("test")
	svc := serving.NewService(nil, 0, metrics, zerolog.Nop())
	if loaded {
		svc.Swap(artifacttest.Model(t))
	}

	srv := httptest.NewServer(NewRouter(Deps{
		Service: svc,
		Runs:    store,
		Metrics: metrics,
		Config:  cfg,
		Log:     zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc, metrics: metrics}
}

func (s *testServer) post(t *testing.T, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(s.URL+"/predict", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthAndBanner(t *testing.T) {
	srv := newTestServer(t, false, nil, nil)

	resp, body := srv.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = srv.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "delaycast")
}

func TestReady(t *testing.T) {
	srv := newTestServer(t, false, nil, nil)

	resp, _ := srv.get(t, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.svc.Swap(artifacttest.Model(t))
	resp, body := srv.get(t, "/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), srv.svc.Model().RunID())
}

func TestPredict_EndToEnd(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	resp, body := srv.post(t, orderJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got contracts.PredictionResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Contains(t, []int{0, 1}, got.DeliveryDelayed)
	assert.GreaterOrEqual(t, got.DelayProbability, 0.0)
	assert.LessOrEqual(t, got.DelayProbability, 1.0)

	// the derived order value is 29.99 * 2 = 59.98
	table, err := serving.OrderFeatures(decodeRequest(t, orderJSON), srv.svc.Model())
	require.NoError(t, err)
	assert.Equal(t, 59.98, table.Numeric[contracts.FeatureOrderValue][0])

	proba, err := srv.svc.Model().PredictProbability(table)
	require.NoError(t, err)
	assert.Equal(t, serving.Round3(proba[0]), got.DelayProbability)
}

func decodeRequest(t *testing.T, body string) contracts.PredictionRequest {
	t.Helper()
	var req contracts.PredictionRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestPredict_Errors(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"price": 29.99,`, http.StatusBadRequest, ""},
		{"empty body", ``, http.StatusBadRequest, ""},
		{"wrong type", `{"price": "cheap"}`, http.StatusUnprocessableEntity, "price"},
		{"missing fields", `{"price": 29.99}`, http.StatusUnprocessableEntity, "quantity"},
		{"month out of range", `{"price": 1, "quantity": 1, "category": "a", "customer_segment": "b",
			"channel": "c", "device_type": "d", "order_dayofweek": 1, "order_month": 13,
			"customer_risk_score": 0.1}`, http.StatusUnprocessableEntity, "order_month"},
		{"fractional quantity", `{"price": 1, "quantity": 2.5, "category": "a", "customer_segment": "b",
			"channel": "c", "device_type": "d", "order_dayofweek": 1, "order_month": 3,
			"customer_risk_score": 0.1}`, http.StatusUnprocessableEntity, "quantity"},
		{"no risk source", `{"price": 1, "quantity": 1, "category": "a", "customer_segment": "b",
			"channel": "c", "device_type": "d", "order_dayofweek": 1, "order_month": 3}`,
			http.StatusUnprocessableEntity, "customer_risk_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := srv.post(t, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			var e handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, tt.field, e.Field)
		})
	}

	// rejected requests leave the model serving
	resp, _ := srv.post(t, orderJSON)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPredict_WholeNumberFloats(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	floats := strings.NewReplacer(`"quantity": 2`, `"quantity": 2.0`, `"order_month": 11`, `"order_month": 11.0`).Replace(orderJSON)

	_, want := srv.post(t, orderJSON)
	resp, got := srv.post(t, floats)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(got))
	assert.JSONEq(t, string(want), string(got))
}

func TestPredict_UnseenCustomer(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	resp, body := srv.post(t, `{"price": 10, "quantity": 1, "category": "toys", "customer_segment": "new",
		"channel": "web", "device_type": "desktop", "order_dayofweek": 6, "order_month": 1,
		"customer_id": "nobody-we-know"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestPredict_NoModel(t *testing.T) {
	srv := newTestServer(t, false, nil, nil)

	resp, _ := srv.post(t, orderJSON)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = srv.get(t, "/api/model")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPredict_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	resp, _ := srv.get(t, "/predict")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPredict_RateLimit(t *testing.T) {
	srv := newTestServer(t, true, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	}, nil)

	resp, _ := srv.post(t, orderJSON)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.post(t, orderJSON)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// other routes are not limited
	resp, _ = srv.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModelInfo(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	resp, body := srv.get(t, "/api/model")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info contracts.ModelInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, srv.svc.Model().RunID(), info.RunID)
	assert.NotEmpty(t, info.Candidate)
	assert.Contains(t, info.Features, "category=Electronics")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, true, nil, nil)

	srv.post(t, orderJSON)
	resp, body := srv.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `test_http_requests_total{method="POST",route="/predict",status="200"} 1`)
	assert.Contains(t, string(body), "test_prediction_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := newTestServer(t, true, func(c *config.Config) { c.MetricsEnabled = false }, nil)

	resp, _ := srv.get(t, "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunsEndpoints(t *testing.T) {
	run := runs.Run{
		RunID:     uuid.New(),
		StartedAt: time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC),
		Status:    runs.StatusSucceeded,
		Selected:  "random_forest_tuned",
		F1:        0.7,
	}
	srv := newTestServer(t, false, nil, &fakeRuns{list: []runs.Run{run}})

	resp, body := srv.get(t, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Runs  []runs.Run `json:"runs"`
		Count int        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, run.RunID, list.Runs[0].RunID)

	resp, _ = srv.get(t, "/api/runs/"+run.RunID.String())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.get(t, "/api/runs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.get(t, "/api/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunsEndpoints_StoreFailure(t *testing.T) {
	srv := newTestServer(t, false, nil, &fakeRuns{err: fmt.Errorf("connection refused")})

	resp, _ := srv.get(t, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRunsEndpoints_AbsentWithoutStore(t *testing.T) {
	srv := newTestServer(t, false, nil, nil)

	resp, _ := srv.get(t, "/api/runs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := &config.Config{Port: "0", Env: "development"}
	srv := New(cfg, zerolog.Nop(), http.HandlerFunc(healthCheckHandler))

	ln, err := newLocalListener()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}
