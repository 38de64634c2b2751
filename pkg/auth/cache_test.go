package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

func TestVerifyCacheFreshness(t *testing.T) {
	user := backend.AuthUser{Login: "octocat", Source: backend.SourceCommunity}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just written", 0, true},
		{"one second before TTL", CacheTTL - time.Second, true},
		{"exactly TTL is expired", CacheTTL, false},
		{"past TTL", CacheTTL + time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewVerifyCache(t.TempDir())
			require.NoError(t, cache.Write("tok", user, base))
			got := cache.Read("tok", base.Add(tt.age))
			if tt.want {
				require.NotNil(t, got)
				assert.Equal(t, user, *got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestVerifyCacheTokenCoherence(t *testing.T) {
	cache := NewVerifyCache(t.TempDir())
	now := time.Now()
	require.NoError(t, cache.Write("old-token", backend.AuthUser{Login: "alice"}, now))

	// A cache entry keyed to the old token must never be returned for a
	// different token.
	assert.Nil(t, cache.Read("new-token", now))
	assert.NotNil(t, cache.Read("old-token", now))
}

func TestVerifyCacheClear(t *testing.T) {
	cache := NewVerifyCache(t.TempDir())
	now := time.Now()
	require.NoError(t, cache.Write("tok", backend.AuthUser{Login: "bob"}, now))
	cache.Clear()
	assert.Nil(t, cache.Read("tok", now))
}

func TestVerifyCacheEmptyTokenNeverHits(t *testing.T) {
	cache := NewVerifyCache(t.TempDir())
	now := time.Now()
	require.NoError(t, cache.Write("", backend.AuthUser{Login: "eve"}, now))
	assert.Nil(t, cache.Read("", now))
}
