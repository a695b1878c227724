// Package llm implements the HTTP client for the hosted LLM completion
// provider, plus the retry and rate-limiting primitives the gateways
// build on.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "2023-06-01"

// ErrNotConfigured is returned when the client is asked to make a request
// without an API key. This is a configuration error, never retried.
var ErrNotConfigured = errors.New("llm API key not configured")

// Client sends completion requests to an Anthropic-style Messages API.
type Client struct {
	httpClient *http.Client
	limiters   *RateLimiterPool
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	ratePerMin int
}

// Options tunes a Client.
type Options struct {
	BaseURL            string
	APIKey             string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
}

// NewClient creates a new completion client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ratePerMin := opts.RateLimitPerMinute
	if ratePerMin <= 0 {
		ratePerMin = 60
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiters:   NewRateLimiterPool(),
		logger:     logger,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		ratePerMin: ratePerMin,
	}
}

// CreateMessage performs a single completion request. It does not retry;
// callers wrap it in a retry Policy tuned for their endpoint.
func (c *Client) CreateMessage(ctx context.Context, req MessagesRequest) (*MessagesResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	modelID := c.baseURL + ":" + req.Model
	if err := c.limiters.Wait(ctx, modelID, c.ratePerMin); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
		}
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
			Retryable:  retryableStatus(httpResp.StatusCode),
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		c.logger.Warn("llm request failed",
			"status", httpResp.StatusCode,
			"type", apiErr.Type,
			"retryable", apiErr.Retryable,
		)
		return nil, apiErr
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

func retryableStatus(status int) bool {
	switch status {
	case StatusOverloaded, StatusUnavailable:
		return true
	}
	return false
}

// IsRetryable reports whether the error should be retried by the tutor
// gateway's backoff loop: provider overload/unavailability, or a transport
// failure that never got a status code at all.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable || apiErr.Overloaded()
	}
	return false
}
