// Package httputil is the outbound HTTP client: retries with backoff,
// optional client-side rate limiting and request logging.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/delaycast/pkg/logger"
)

const userAgent = "delaycast-client"

// Client is an HTTP client with retry and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	retry      RetryConfig
	limiter    *rate.Limiter
}

// RetryConfig holds retry configuration. Delays double up to MaxDelay;
// a Retry-After header from the server replaces the computed delay.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-attempt timeout (default 10s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetry retries 429 and 5xx responses up to maxRetries times
func WithRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.Enabled = maxRetries > 0
		c.retry.MaxRetries = maxRetries
		c.retry.InitialDelay = initialDelay
	}
}

// WithoutRetry sends every request exactly once
func WithoutRetry() Option {
	return func(c *Client) { c.retry.Enabled = false }
}

// WithRateLimit throttles outgoing requests to rps with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a client: 10s timeout, 3 retries from 500ms
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
		retry: RetryConfig{
			Enabled:      true,
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	return c.do(req)
}

// PostJSON encodes data and POSTs it
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	fields := map[string]interface{}{"method": req.Method, "url": req.URL.String()}
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	attempts := 1
	if c.retry.Enabled {
		attempts += c.retry.MaxRetries
	}

	resp, err := c.send(req, attempts)
	fields["duration"] = time.Since(start)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Error("HTTP request failed")
		return nil, err
	}

	fields["status_code"] = resp.StatusCode
	c.logger.WithFields(fields).Debug("HTTP request completed")
	return resp, nil
}

// send tries req up to attempts times. Bodies are rewound through GetBody,
// which NewRequest sets for bytes readers. The last response is returned as is.
func (c *Client) send(req *http.Request, attempts int) (*http.Response, error) {
	delay := c.retry.InitialDelay

	for attempt := 1; ; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		if attempt == attempts || (err == nil && !IsRetryableError(resp.StatusCode)) {
			return resp, err
		}

		wait := delay
		if resp != nil {
			if d, ok := retryAfter(resp); ok {
				wait = d
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if wait > c.retry.MaxDelay {
			wait = c.retry.MaxDelay
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   wait,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
	}
}

// retryAfter reads a Retry-After header given in seconds
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// IsRetryableError reports whether a status is worth another attempt:
// 5xx server errors and 429 Too Many Requests
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
