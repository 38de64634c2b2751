package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/releasekit/releasekit-go/pkg/telemetry"
)

func TestUnconfiguredClientFailsEveryCall(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.False(t, c.Configured())

	err = c.Get(context.Background(), "/sessions", nil, nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
	err = c.Post(context.Background(), "/sessions", nil, nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
	_, err = c.URL("/auth/github/start", nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New("backend.example.com/api")
	require.Error(t, err)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "tok-123" })))
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/sessions", nil, &out))
	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Equal(t, "yes", out["ok"])
}

func TestEmptyTokenOmitsAuthorization(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "  " })))
	require.NoError(t, err)
	require.NoError(t, c.Get(context.Background(), "/sessions", nil, nil))
	assert.Empty(t, got.Get("Authorization"))
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"structured message", 400, `{"message":"bad range","details":{"field":"from"}}`, "bad range"},
		{"error key fallback", 404, `{"error":"not indexed"}`, "not indexed"},
		{"raw body fallback", 500, "database is down", "database is down"},
		{"status text fallback", 502, "", "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL)
			require.NoError(t, err)
			err = c.Get(context.Background(), "/x", nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestNotFoundAndUnauthorizedHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{Status: 404}))
	assert.False(t, IsNotFound(&APIError{Status: 500}))
	assert.False(t, IsNotFound(ErrNoBaseURL))

	assert.True(t, IsUnauthorized(&APIError{Status: 401}))
	assert.True(t, IsUnauthorized(&APIError{Status: 403}))
	assert.False(t, IsUnauthorized(&APIError{Status: 404}))
}

func TestEmptyBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/no-content":
			w.WriteHeader(http.StatusNoContent)
		case "/blank":
			_, _ = w.Write([]byte("  \n"))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/no-content", nil, &out))
	assert.Nil(t, out)
	require.NoError(t, c.Get(context.Background(), "/blank", nil, &out))
	assert.Nil(t, out)
}

func TestPostEncodesBody(t *testing.T) {
	var gotBody map[string]string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "s1"})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Post(context.Background(), "/sessions", map[string]string{"from": "v1.0.0"}, &out))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "v1.0.0", gotBody["from"])
	assert.Equal(t, "s1", out["id"])
}

func TestSpanStatusMasksEchoedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid credential gho_abcdef0123456789abcdef",
		})
	}))
	defer srv.Close()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	tm, err := telemetry.NewManager(context.Background(), telemetry.Config{TracerProvider: tp})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Shutdown(context.Background()) })

	c, err := New(srv.URL, WithTelemetry(tm))
	require.NoError(t, err)

	err = c.Get(context.Background(), "/auth/me", nil, nil)
	require.Error(t, err)
	// The caller still sees the raw message; only telemetry is filtered.
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "gho_")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	desc := spans[0].Status.Description
	assert.NotContains(t, desc, "gho_", "span status leaked a credential: %q", desc)
	assert.Contains(t, desc, "[redacted]")
}

func TestURLResolvesPathAndQuery(t *testing.T) {
	c, err := New("https://backend.example.com/api/")
	require.NoError(t, err)

	u, err := c.URL("/auth/github/start", url.Values{"returnTo": {"/sessions?tab=2"}})
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example.com/api/auth/github/start?returnTo=%2Fsessions%3Ftab%3D2", u)
}
