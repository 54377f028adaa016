// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"promptq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Auth.OwnerID = "owner-test"
	cfg.Service.APIKey = "test-key"
	cfg.Service.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithOwner overrides the configured owner identifier.
func WithOwner(ownerID string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Auth.OwnerID = ownerID
	}
}

// WithServiceBaseURL points the task service client at a test server.
func WithServiceBaseURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Service.BaseURL = baseURL
	}
}

// WithExecutorDelays overrides run-loop pacing so tests finish promptly.
func WithExecutorDelays(pacingMS, retryMS int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Executor.PacingDelayMS = pacingMS
		cfg.Executor.RetryDelayMS = retryMS
	}
}

// WithCacheTTL overrides the queue list cache TTL in seconds. Zero disables
// caching entirely.
func WithCacheTTL(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.ListCacheTTLSeconds = seconds
	}
}
