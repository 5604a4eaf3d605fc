// Package apiclient is the HTTP transport to the GuestReport REST backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"guestreport_client/internal/common"

	"go.uber.org/zap"
)

// Backend paths, relative to the configured base URL.
const (
	PathLogin           = "User/login"
	PathGoogleLogin     = "User/google"
	PathRegister        = "User"
	PathUser            = "User"
	PathCountries       = "Country"
	PathStatesByCountry = "State"
	PathCitiesByState   = "City"
)

// RequestContext carries the bearer credential attached to outgoing requests.
// The session manager is its only writer.
type RequestContext struct {
	mu     sync.RWMutex
	bearer string
}

func NewRequestContext() *RequestContext {
	return &RequestContext{}
}

func (r *RequestContext) SetBearer(token string) {
	r.mu.Lock()
	r.bearer = token
	r.mu.Unlock()
}

func (r *RequestContext) ClearBearer() {
	r.SetBearer("")
}

func (r *RequestContext) Bearer() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bearer
}

// AuthorizationHeader returns the header value, or "" when no credential is set.
func (r *RequestContext) AuthorizationHeader() string {
	token := r.Bearer()
	if token == "" {
		return ""
	}
	return common.AuthorizationTypeBearer + " " + token
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// AsStatusError unwraps a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client issues JSON requests against the backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	auth       *RequestContext
	logger     *zap.Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a client-wide timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a Client. rc must be non-nil; it is shared with the session manager.
func New(baseURL string, rc *RequestContext, logger *zap.Logger, opts ...Option) (*Client, error) {
	if rc == nil {
		return nil, errors.New("apiclient: request context is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: invalid base url %q: %w", baseURL, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		auth:       rc,
		logger:     logger.Named("apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequestContext returns the credential holder used by this client.
func (c *Client) RequestContext() *RequestContext {
	return c.auth
}

// OnUnauthorized registers the teardown to run when a credentialed request gets a 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Get decodes the JSON body of GET path into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Do performs one request. Transport failures come back as *common.NetworkError,
// non-2xx responses as *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	target, err := c.baseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return fmt.Errorf("apiclient: invalid path %q: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	authHeader := c.auth.AuthorizationHeader()
	if authHeader != "" {
		req.Header.Set(common.AuthorizationHeader, authHeader)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &common.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &common.NetworkError{Op: method + " " + path, Err: err}
	}
	c.logger.Debug("Request handled",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: extractMessage(raw), Body: raw}
		if resp.StatusCode == http.StatusUnauthorized && authHeader != "" {
			c.logger.Info("Backend rejected the session credential, tearing the session down", zap.String("path", path))
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook()
			}
		}
		return se
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode %s response: %w", path, err)
	}
	return nil
}

// extractMessage pulls "message" out of an error payload, if there is one.
func extractMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Message
}
