// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Configuration constants for the Letta API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// userAgent identifies the client to the server.
	userAgent = "animus-chat/1.0"
)

var (
	// Shared HTTP client with connection pooling for regular requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streams are bounded by context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one Letta server on behalf of one selected agent.
// The selected agent may be switched while other goroutines read it.
type Client struct {
	baseURL string
	token   string

	mu      sync.RWMutex
	agentID string

	httpClient   *http.Client
	streamClient *http.Client
	maxRetries   int
	retryDelay   time.Duration

	logger *slog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		maxRetries:   DefaultMaxRetries,
		retryDelay:   retryBaseDelay,
		logger:       slog.New(slog.DiscardHandler),
	}
}

// WithHTTPClient uses h for both regular and streaming requests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	c.streamClient = h
	return c
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	h := *c.httpClient
	h.Timeout = timeout
	c.httpClient = &h
	return c
}

// WithMaxRetries sets the number of attempts for idempotent requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	return c
}

// WithLogger sets the logger. Request lines are logged at debug level.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithAgent preselects an agent.
func (c *Client) WithAgent(agentID string) *Client {
	c.mu.Lock()
	c.agentID = strings.TrimSpace(agentID)
	c.mu.Unlock()
	return c
}

// IsConfigured reports whether the client has a server URL and token.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.token != ""
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AgentID returns the selected agent, or "".
func (c *Client) AgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.agentID
}

// SelectAgent makes id the target of subsequent messages.
func (c *Client) SelectAgent(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNoAgent
	}
	c.mu.Lock()
	c.agentID = id
	c.mu.Unlock()
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

// Health checks that the server is reachable and the token is accepted.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.getJSON(ctx, "/v1/health/", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListAgents returns the agent directory in server order.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.getJSON(ctx, "/v1/agents/", &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent fetches a single agent.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := c.getJSON(ctx, "/v1/agents/"+url.PathEscape(id), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// SendMessage sends text to the selected agent and waits for the full reply.
// The first assistant message is returned; reasoning is not separated.
// Messages are not retried: a retried POST would be delivered twice.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	agentID, err := c.ready()
	if err != nil {
		return "", err
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, messagesPath(agentID, false), newMessageRequest(text, false))
	if err != nil {
		return "", err
	}

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	var out messageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	for i := range out.Messages {
		if out.Messages[i].MessageType == MessageTypeAssistant {
			return out.Messages[i].Text(), nil
		}
	}
	return "", ErrEmptyResponse
}

// ready returns the selected agent once the client can send messages.
func (c *Client) ready() (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	agentID := c.AgentID()
	if agentID == "" {
		return "", ErrNoAgent
	}
	return agentID, nil
}

func messagesPath(agentID string, streaming bool) string {
	p := "/v1/agents/" + url.PathEscape(agentID) + "/messages"
	if streaming {
		p += "/stream"
	}
	return p
}

// getJSON performs a GET with retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		lastErr = c.getOnce(ctx, path, out)
		if lastErr == nil || !c.isRetryable(lastErr) {
			return lastErr
		}
		c.logger.Debug("retrying request", "path", path, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) getOnce(ctx context.Context, path string, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	return req, nil
}

// setHeaders sets the headers every Letta request carries.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

// do sends req and logs it without headers or body.
func (c *Client) do(h *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path)

	resp, err := h.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.logger.Debug("api response", "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an error status into a Go error.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var parsed apiErrorBody
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil {
		if t := parsed.text(); t != "" {
			msg = t
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			return ErrAuthFailed
		}
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case http.StatusNotFound:
		if msg == "" {
			return ErrAgentNotFound
		}
		return fmt.Errorf("%w: %s", ErrAgentNotFound, msg)
	case http.StatusTooManyRequests:
		if msg == "" {
			return ErrRateLimited
		}
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return &APIError{Status: statusCode, Message: msg}
	}
}

// isRetryable reports whether a failed idempotent request may be repeated.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return false
}

// calculateBackoff returns the delay before the given attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
