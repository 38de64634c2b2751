// Package config loads process configuration from the environment and
// persists small user preferences under the data directory.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variables consumed by the client.
const (
	apiURLVar       = "RELEASEKIT_API_URL"
	authProbeVar    = "RELEASEKIT_AUTH_PROBE"
	pollIntervalVar = "RELEASEKIT_POLL_INTERVAL"
	dataDirVar      = "RELEASEKIT_DATA_DIR"
	otlpEndpointVar = "RELEASEKIT_OTLP_ENDPOINT"
	logLevelVar     = "RELEASEKIT_LOG_LEVEL"
)

// Config is the resolved process configuration.
type Config struct {
	// APIBaseURL is required for every network feature. When empty the
	// client still starts; auth settles into unauthenticated with a
	// configuration error and session creation falls back to synthetic
	// local sessions.
	APIBaseURL string
	// AuthProbe enables the no-token identity probe that detects backends
	// running with access control disabled. Off by default.
	AuthProbe    bool
	PollInterval time.Duration
	DataDir      string
	OTLPEndpoint string
	LogLevel     string
}

// FromEnv resolves configuration with defaults.
func FromEnv() Config {
	return Config{
		APIBaseURL:   getEnv(apiURLVar, ""),
		AuthProbe:    getBool(authProbeVar, false),
		PollInterval: getDuration(pollIntervalVar, 5*time.Second),
		DataDir:      getEnv(dataDirVar, defaultDataDir()),
		OTLPEndpoint: getEnv(otlpEndpointVar, ""),
		LogLevel:     getEnv(logLevelVar, "info"),
	}
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".releasekit"
	}
	return filepath.Join(base, "releasekit")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
