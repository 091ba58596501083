package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Alignment.Breaker.FailureThreshold >= cfg.Analysis.Breaker.FailureThreshold {
		t.Errorf("alignment threshold %d should trip before analysis threshold %d",
			cfg.Alignment.Breaker.FailureThreshold, cfg.Analysis.Breaker.FailureThreshold)
	}
	if cfg.Sync.DriftAbsFloorMs != 2000 || cfg.Sync.DriftRelFloor != 0.05 {
		t.Errorf("drift floors = %d/%v", cfg.Sync.DriftAbsFloorMs, cfg.Sync.DriftRelFloor)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing data dir", func(c *config.Config) { c.Paths.DataDir = " " }, "paths.data_dir"},
		{"missing alignment url", func(c *config.Config) { c.Alignment.BaseURL = "" }, "alignment.base_url"},
		{"negative speaker hint", func(c *config.Config) { c.Alignment.SpeakerHint = -1 }, "speaker_hint"},
		{"zero breaker threshold", func(c *config.Config) { c.Analysis.Breaker.FailureThreshold = 0 }, "failure_threshold"},
		{"relative floor above one", func(c *config.Config) { c.Sync.DriftRelFloor = 1.5 }, "drift_rel_floor"},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
audio_dir = "` + filepath.Join(dir, "audio") + `"

[alignment]
base_url = "http://alignment.internal:9000"
speaker_hint = 2

[analysis]
retry_max_attempts = 2

[analysis.breaker]
failure_threshold = 12
reset_timeout_seconds = 90
half_open_requests = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Alignment.BaseURL != "http://alignment.internal:9000" {
		t.Errorf("BaseURL = %q", cfg.Alignment.BaseURL)
	}
	if cfg.Alignment.SpeakerHint != 2 {
		t.Errorf("SpeakerHint = %d", cfg.Alignment.SpeakerHint)
	}
	if cfg.Analysis.Breaker.FailureThreshold != 12 || cfg.Analysis.Breaker.ResetTimeoutSeconds != 90 {
		t.Errorf("analysis breaker = %+v", cfg.Analysis.Breaker)
	}
	// Unset sections keep defaults.
	if cfg.Worker.PollIntervalSeconds != 5 {
		t.Errorf("PollIntervalSeconds = %d", cfg.Worker.PollIntervalSeconds)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists = true for missing file")
	}
	if cfg.Alignment.BaseURL == "" {
		t.Error("defaults not applied")
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("RECAP_ANALYSIS_API_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.APIKey != "from-env" {
		t.Errorf("APIKey = %q", cfg.Analysis.APIKey)
	}
}
