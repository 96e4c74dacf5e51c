package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

// BatchPath is the fixed endpoint path of the batch backend.
const BatchPath = "/weather/batch"

const (
	// maxErrorBody bounds how much of a failed response body is kept.
	maxErrorBody = 64 << 10
	// maxResponseBody bounds a successful response body.
	maxResponseBody = 64 << 20
)

var (
	errNoHTTPClient = errors.New("http client not configured")
	errServerError  = errors.New("server error")
	errNullResponse = errors.New("response body is null")
)

// BreakerConfig controls the circuit breaker around backend calls.
// MaxFailures == 0 disables the breaker.
type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// Client implements weather.Backend over HTTP. Each Send makes at most one
// attempt; retrying is up to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a client for the backend at baseURL.
func NewClient(httpClient *http.Client, baseURL string, breaker BreakerConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}

	if breaker.MaxFailures > 0 {
		maxFailures := breaker.MaxFailures
		c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "weather-batch",
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		})
	}
	return c
}

// Send posts req as JSON and decodes the batch response.
func (c *Client) Send(ctx context.Context, req weather.BatchRequest) (weather.BatchResponse, error) {
	if c.http == nil {
		return weather.BatchResponse{}, networkError(errNoHTTPClient)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return weather.BatchResponse{}, fmt.Errorf("encode batch request: %w", err)
	}

	resp, err := c.do(ctx, body)
	if err != nil {
		return weather.BatchResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			return weather.BatchResponse{}, networkError(readErr)
		}
		return weather.BatchResponse{}, httpStatusError(resp.StatusCode, string(text))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return weather.BatchResponse{}, networkError(err)
	}
	return decodeResponse(data)
}

// decodeResponse parses a whole body as one batch response. Trailing data and
// a bare null are rejected.
func decodeResponse(data []byte) (weather.BatchResponse, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return weather.BatchResponse{}, decodeError(errNullResponse)
	}
	var out weather.BatchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return weather.BatchResponse{}, decodeError(err)
	}
	return out, nil
}

// do executes one attempt, through the circuit breaker when configured.
// Only network failures and 5xx responses count against the breaker.
func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	attempt := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BatchPath, bytes.NewReader(body))
		if err != nil {
			return nil, networkError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, networkError(err)
		}
		return resp, nil
	}

	if c.circuit == nil {
		return attempt()
	}

	var resp *http.Response
	_, err := c.circuit.Execute(func() (interface{}, error) {
		r, err := attempt()
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, errServerError
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, networkError(err)
	}
	if resp == nil && err != nil {
		return nil, err
	}
	// A 5xx response is returned to the caller for status handling.
	return resp, nil
}
