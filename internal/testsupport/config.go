package testsupport

import (
	"path/filepath"
	"testing"

	"recap/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Analysis.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAlignmentURL points the alignment client at a test server.
func WithAlignmentURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Alignment.BaseURL = url
	}
}

// WithAnalysisURL points the analysis client at a test server.
func WithAnalysisURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.BaseURL = url
	}
}
