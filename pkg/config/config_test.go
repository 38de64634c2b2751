package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{apiURLVar, authProbeVar, pollIntervalVar, dataDirVar, logLevelVar} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	assert.Empty(t, cfg.APIBaseURL)
	assert.False(t, cfg.AuthProbe)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(apiURLVar, "https://api.example.com")
	t.Setenv(authProbeVar, "true")
	t.Setenv(pollIntervalVar, "30s")
	t.Setenv(dataDirVar, "/tmp/releasekit-test")
	cfg := FromEnv()
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.True(t, cfg.AuthProbe)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "/tmp/releasekit-test", cfg.DataDir)
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv(authProbeVar, "definitely")
	t.Setenv(pollIntervalVar, "-3s")
	cfg := FromEnv()
	assert.False(t, cfg.AuthProbe)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestPrefsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	require.NoError(t, SavePrefs(dir, Prefs{IssueProduct: "cli", IssueVersion: "2.1"}))
	got := LoadPrefs(dir)
	assert.Equal(t, "cli", got.IssueProduct)
	assert.Equal(t, "2.1", got.IssueVersion)
}

func TestPrefsMissingOrCorrupt(t *testing.T) {
	assert.Equal(t, Prefs{}, LoadPrefs(t.TempDir()))

	dir := t.TempDir()
	require.NoError(t, SavePrefs(dir, Prefs{IssueProduct: "cli"}))
	// Corrupt the file in place.
	require.NoError(t, os.WriteFile(filepath.Join(dir, prefsFile), []byte("{{{not yaml"), 0o600))
	assert.Equal(t, Prefs{}, LoadPrefs(dir))
}
