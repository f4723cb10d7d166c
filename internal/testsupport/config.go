package testsupport

import (
	"path/filepath"
	"testing"

	"splice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithLeaseSeconds overrides the task lease lifetime on the test config.
func WithLeaseSeconds(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.LeaseSeconds = seconds
	}
}

// WithMaxTaskAttempts overrides the retry limit on the test config.
func WithMaxTaskAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.MaxTaskAttempts = attempts
	}
}

// WithAPIToken sets the static management token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
