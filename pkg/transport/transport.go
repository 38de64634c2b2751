// Package transport implements the HTTP plumbing shared by every backend
// call: URL construction, JSON encoding, bearer credentials, and
// normalization of non-2xx responses into a single error type.
package transport

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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/releasekit/releasekit-go/pkg/telemetry"
)

var (
	// ErrNoBaseURL indicates the client was built without a backend base URL.
	// Every network-dependent feature treats this as a configuration error.
	ErrNoBaseURL = errors.New("transport: backend base URL is not configured")
)

const defaultTimeout = 30 * time.Second

// APIError is the normalized form of any non-2xx backend response.
type APIError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transport: backend returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is an APIError with a 401 or 403 status.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// TokenSource supplies the bearer credential attached to outgoing requests.
// An empty string means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to the TokenSource interface.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches a bearer credential provider.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger routes request logging through the provided logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTelemetry records spans and request metrics through the manager.
func WithTelemetry(tm *telemetry.Manager) Option {
	return func(c *Client) { c.telemetry = tm }
}

// Client shapes JSON requests against a single backend base URL. The zero
// value is unusable; construct through New.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenSource
	logger    zerolog.Logger
	telemetry *telemetry.Manager
}

// New builds a client for the given base URL. An empty baseURL yields a
// client whose every call fails with ErrNoBaseURL; callers surface that as
// a configuration error exactly once rather than crashing.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		logger: zerolog.Nop(),
	}
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("transport: parse base URL: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("transport: base URL %q must be absolute", baseURL)
		}
		c.base = parsed
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Configured reports whether a base URL was supplied.
func (c *Client) Configured() bool { return c != nil && c.base != nil }

// URL resolves a path and query against the base URL without issuing a
// request. Used for browser-bound URLs such as the OAuth kickoff.
func (c *Client) URL(path string, query url.Values) (string, error) {
	if c == nil || c.base == nil {
		return "", ErrNoBaseURL
	}
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

// Get issues a GET and decodes the JSON response into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE. Responses without a body are treated as success.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil || c.base == nil {
		return ErrNoBaseURL
	}

	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("transport: marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	ctx, span := c.telemetry.StartSpan(ctx, "backend."+method,
		c.telemetry.SpanAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		)...)
	defer span.End()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.telemetry.RecordRequest(ctx, telemetry.RequestData{Method: method, Route: path, Duration: elapsed, Error: err})
		return fmt.Errorf("transport: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("backend request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := normalizeError(resp.StatusCode, data)
		// Backends echo credentials in error bodies on bad-auth responses;
		// the message must pass the filter before it reaches the span.
		span.SetStatus(codes.Error, c.telemetry.MaskText(apiErr.Message))
		c.telemetry.RecordRequest(ctx, telemetry.RequestData{Method: method, Route: path, Duration: elapsed, Error: apiErr})
		return apiErr
	}
	c.telemetry.RecordRequest(ctx, telemetry.RequestData{Method: method, Route: path, Duration: elapsed})

	// 204 and genuinely empty bodies are an empty success.
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// normalizeError maps any non-2xx payload to an APIError. Backends that
// return a structured {status, message, details} body keep their message;
// everything else falls back to the raw body or the HTTP status text.
func normalizeError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var parsed struct {
		Message string         `json:"message"`
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
		apiErr.Details = parsed.Details
	}
	if apiErr.Message == "" {
		trimmed := strings.TrimSpace(string(body))
		if trimmed != "" && len(trimmed) <= 512 {
			apiErr.Message = trimmed
		} else {
			apiErr.Message = http.StatusText(status)
		}
	}
	return apiErr
}
