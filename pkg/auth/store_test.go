package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreLegacyMigration(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTokenStore(dir)
	require.NoError(t, err)

	// Neither key set.
	assert.Equal(t, "", store.Token())

	// Only the legacy key set: value is returned trimmed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyTokenFile), []byte("  gho_legacy123  \n"), 0o600))
	assert.Equal(t, "gho_legacy123", store.Token())

	// Writing a new token removes the legacy key.
	require.NoError(t, store.Set("gho_fresh456"))
	assert.Equal(t, "gho_fresh456", store.Token())
	_, statErr := os.Stat(filepath.Join(dir, legacyTokenFile))
	assert.True(t, os.IsNotExist(statErr), "legacy key must be removed on write")
}

func TestTokenStoreCanonicalShadowsLegacy(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTokenStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyTokenFile), []byte("old"), 0o600))
	require.NoError(t, store.Set("new"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyTokenFile), []byte("old"), 0o600))
	assert.Equal(t, "new", store.Token(), "canonical key wins over a lingering legacy key")
}

func TestTokenStoreClear(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTokenStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("tok"))
	store.Clear()
	assert.Equal(t, "", store.Token())
}

func TestTokenStoreRejectsEmpty(t *testing.T) {
	store, err := NewTokenStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, store.Set("   "))
}
