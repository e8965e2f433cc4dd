// Package api provides the HTTP client for the chat API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatai/internal/errors"
	"github.com/diogo/chatai/internal/logging"
	"github.com/diogo/chatai/internal/models"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4096

// HTTPDoer is the part of tls_client.HttpClient the client uses
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the chat API
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	model      string
	timeout    time.Duration
	log        *slog.Logger
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL sets the server address
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel sets the model used when a request does not name one
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout bounds each request, streaming body included. It only applies
// to the default transport.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the default tls-client transport
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithLogger sets the logger for request tracing
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		baseURL: models.DefaultBaseURL,
		model:   models.DefaultModel,
		timeout: 300 * time.Second,
		log:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Close marks the client closed. Later calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Model returns the default model
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel sets the default model
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// do sends a JSON request and returns the response when the status is 200.
// The caller closes the body.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload any) (*http.Response, error) {
	if c.IsClosed() {
		return nil, apierrors.ErrClientClosed
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Debug("request failed", "method", method, "path", endpoint, "error", err)
		if apierrors.IsTimeout(err) {
			return nil, apierrors.NewTimeoutError(strings.ToLower(method) + " " + endpoint)
		}
		return nil, apierrors.NewNetworkErrorWithEndpoint(strings.ToLower(method), endpoint, err)
	}

	c.log.Debug("request", "method", method, "path", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		errorBody := readLimited(resp.Body, maxErrorBody)
		_ = resp.Body.Close()
		return nil, apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, detailMessage(errorBody, resp.StatusCode), errorBody)
	}

	return resp, nil
}

// getJSON performs a request and reads the whole JSON body
func (c *Client) getJSON(ctx context.Context, method, endpoint string, query url.Values, payload any) (gjson.Result, error) {
	resp, err := c.do(ctx, method, endpoint, query, payload)
	if err != nil {
		return gjson.Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, apierrors.NewNetworkErrorWithEndpoint("read response", endpoint, err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, apierrors.NewParseError("response is not JSON", endpoint)
	}
	return gjson.ParseBytes(data), nil
}

func readLimited(r io.Reader, limit int64) string {
	data, _ := io.ReadAll(io.LimitReader(r, limit))
	return string(data)
}

// detailMessage extracts the error detail a FastAPI server puts in failed
// responses, or falls back to the status text.
func detailMessage(body string, status int) string {
	detail := gjson.Get(body, PathDetail)
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		if msg := gjson.Get(body, PathDetailFirstMsg); msg.Exists() {
			return msg.String()
		}
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "request failed"
}
