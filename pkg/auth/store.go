// Package auth resolves and caches the bearer identity used against the
// backend: token persistence with legacy-key migration, a TTL-bound
// verification cache, and a manager that settles the process into exactly
// one of checking/authenticated/unauthenticated.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tokenFile = "credentials"
	// legacyTokenFile is read for backward compatibility but never written;
	// the first write through this store migrates its value away.
	legacyTokenFile = "auth-token"
)

// TokenStore persists at most one bearer token under dir. It implements
// transport.TokenSource so the HTTP client always sees the current token.
type TokenStore struct {
	mu  sync.Mutex
	dir string
}

// NewTokenStore creates the backing directory if needed.
func NewTokenStore(dir string) (*TokenStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("auth: token store dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("auth: mkdir token store: %w", err)
	}
	return &TokenStore{dir: dir}, nil
}

// Path returns the canonical credentials file location.
func (s *TokenStore) Path() string { return filepath.Join(s.dir, tokenFile) }

// Token returns the stored token, falling back to the legacy key. Empty
// string means no token is stored.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok := readTrimmed(filepath.Join(s.dir, tokenFile)); tok != "" {
		return tok
	}
	return readTrimmed(filepath.Join(s.dir, legacyTokenFile))
}

// Set persists token as the single live credential and removes the legacy
// key so it can never shadow the new value.
func (s *TokenStore) Set(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return errors.New("auth: refusing to store empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, tokenFile), []byte(trimmed+"\n"), 0o600); err != nil {
		return fmt.Errorf("auth: write token: %w", err)
	}
	_ = os.Remove(filepath.Join(s.dir, legacyTokenFile))
	return nil
}

// Clear removes both the canonical and legacy credentials.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = os.Remove(filepath.Join(s.dir, tokenFile))
	_ = os.Remove(filepath.Join(s.dir, legacyTokenFile))
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
