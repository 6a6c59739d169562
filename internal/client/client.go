// Package client calls a running delaycast server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/pkg/httputil"
)

// APIError is a non-2xx reply from the server
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("server returned %d: %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsSchemaMismatch reports whether the server rejected the request body
func (e *APIError) IsSchemaMismatch() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// Client is a typed client for the prediction API
type Client struct {
	http    *httputil.Client
	baseURL string
}

// New creates a client for the server at baseURL
func New(baseURL string, hc *httputil.Client) *Client {
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Predict posts one order to /predict
func (c *Client) Predict(ctx context.Context, req contracts.PredictionRequest) (contracts.PredictionResponse, error) {
	var out contracts.PredictionResponse

	resp, err := c.http.PostJSON(ctx, c.baseURL+"/predict", req)
	if err != nil {
		return out, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()

	if err := decode(resp, &out); err != nil {
		return out, fmt.Errorf("predict: %w", err)
	}
	return out, nil
}

// Model fetches the served artifact's metadata
func (c *Client) Model(ctx context.Context) (contracts.ModelInfo, error) {
	var out contracts.ModelInfo

	resp, err := c.http.Get(ctx, c.baseURL+"/api/model")
	if err != nil {
		return out, fmt.Errorf("model info: %w", err)
	}
	defer resp.Body.Close()

	if err := decode(resp, &out); err != nil {
		return out, fmt.Errorf("model info: %w", err)
	}
	return out, nil
}

// Ready returns nil once the server has a model loaded
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.http.Get(ctx, c.baseURL+"/ready")
	if err != nil {
		return fmt.Errorf("ready: %w", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := decode(resp, &body); err != nil {
		return fmt.Errorf("ready: %w", err)
	}
	return nil
}

func decode(resp *http.Response, dest interface{}) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error  string `json:"error"`
			Field  string `json:"field"`
			Status string `json:"status"`
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if json.Unmarshal(data, &e) == nil {
			switch {
			case e.Error != "":
				apiErr.Message = e.Error
			case e.Status != "":
				apiErr.Message = e.Status
			}
			apiErr.Field = e.Field
		}
		return apiErr
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
