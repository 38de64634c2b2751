package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

// CacheTTL bounds how long a verified identity may be reused without a
// fresh round trip to the identity endpoint.
const CacheTTL = 5 * time.Minute

const cacheFile = "auth-cache.json"

// CacheEntry records one successful verification of a token.
type CacheEntry struct {
	Token     string           `json:"token"`
	User      backend.AuthUser `json:"user"`
	CheckedAt time.Time        `json:"checkedAt"`
}

// VerifyCache persists the last verified identity to cut re-verification
// traffic. An entry is usable only while its token matches the token being
// checked and it is younger than the TTL; an entry aged exactly TTL is
// already expired.
type VerifyCache struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
}

// NewVerifyCache stores the cache file under dir.
func NewVerifyCache(dir string) *VerifyCache {
	return &VerifyCache{path: filepath.Join(dir, cacheFile), ttl: CacheTTL}
}

// Read returns the cached user for token, or nil when the entry is absent,
// stale, or keyed to a different token.
func (c *VerifyCache) Read(token string, now time.Time) *backend.AuthUser {
	if c == nil || token == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.Token != token {
		return nil
	}
	if now.Sub(entry.CheckedAt) >= c.ttl {
		return nil
	}
	user := entry.User
	return &user
}

// Write replaces the cache entry with a freshly verified identity.
func (c *VerifyCache) Write(token string, user backend.AuthUser, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(CacheEntry{Token: token, User: user, CheckedAt: now})
	if err != nil {
		return fmt.Errorf("auth: marshal cache entry: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("auth: write cache entry: %w", err)
	}
	return nil
}

// Clear removes any cached identity.
func (c *VerifyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = os.Remove(c.path)
}
