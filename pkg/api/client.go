// Package api is a client for the analytics backend HTTP API.
//
// Every operation maps to exactly one request:
//
//	POST   /chat
//	GET    /health
//	DELETE /session/{id}
//	GET    /agents
//
// Failures of any kind are reported as *TransportError.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/analytics-console/pkg/httpclient"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds every request made by the default transport.
	DefaultTimeout = 30 * time.Second

	contentTypeJSON = "application/json"
)

// Client issues requests against a fixed base URL. It holds no mutable state
// and is safe for concurrent use.
type Client struct {
	baseURL   string
	transport httpclient.Client
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithTransport substitutes the HTTP transport.
func WithTransport(t httpclient.Client) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// New builds a Client for baseURL, falling back to DefaultBaseURL when empty.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.transport == nil {
		c.transport = httpclient.NewRestyClient(DefaultTimeout)
	}
	return c
}

// BaseURL returns the host prefix used by every operation.
func (c *Client) BaseURL() string { return c.baseURL }

// SendMessage posts a chat turn and returns the backend's reply.
func (c *Client) SendMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: chat request is nil", ErrInvalidArgument)
	}
	var out ChatResponse
	if err := c.call(ctx, "send message", http.MethodPost, "/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck probes the backend health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, "health check", http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a server-side session. The id is path-escaped, so
// callers pass it raw.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidArgument)
	}
	return c.call(ctx, "delete session", http.MethodDelete, "/session/"+url.PathEscape(sessionID), nil, nil)
}

// GetAgents lists the agents registered with the backend.
func (c *Client) GetAgents(ctx context.Context) (*AgentListResponse, error) {
	var out AgentListResponse
	if err := c.call(ctx, "get agents", http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one request. A nil out discards the response body.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := c.transport.Do(ctx, &httpclient.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: map[string]string{"Content-Type": contentTypeJSON},
		Body:    body,
	})
	if err != nil {
		return &TransportError{Kind: classify(err), Op: op, Method: method, Path: path, Err: err}
	}
	if resp == nil {
		return &TransportError{Kind: KindNetwork, Op: op, Method: method, Path: path, Err: errors.New("transport returned no response")}
	}

	code := resp.StatusCode()
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return &TransportError{
			Kind:       KindStatus,
			Op:         op,
			Method:     method,
			Path:       path,
			StatusCode: code,
			Body:       readBodySnippet(resp.Body()),
		}
	}

	if out == nil {
		return nil
	}
	raw := resp.Body()
	if len(raw) == 0 {
		return &TransportError{Kind: KindDecode, Op: op, Method: method, Path: path, StatusCode: code, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Kind: KindDecode, Op: op, Method: method, Path: path, StatusCode: code, Err: err}
	}
	return nil
}
