package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	AudioDir string `toml:"audio_dir"`
}

// Breaker contains circuit-breaker thresholds for one external service.
type Breaker struct {
	FailureThreshold    int `toml:"failure_threshold"`
	ResetTimeoutSeconds int `toml:"reset_timeout_seconds"`
	HalfOpenRequests    int `toml:"half_open_requests"`
}

// Alignment contains configuration for the forced-alignment/diarization service.
type Alignment struct {
	BaseURL        string  `toml:"base_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	SpeakerHint    int     `toml:"speaker_hint"`
	Breaker        Breaker `toml:"breaker"`
}

// Analysis contains configuration for the content-analysis service.
type Analysis struct {
	BaseURL          string  `toml:"base_url"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	RetryMaxAttempts int     `toml:"retry_max_attempts"`
	Breaker          Breaker `toml:"breaker"`
}

// Sync contains the drift-correction floors used by the playback sync engine.
type Sync struct {
	DriftAbsFloorMs int64   `toml:"drift_abs_floor_ms"`
	DriftRelFloor   float64 `toml:"drift_rel_floor"`
}

// Worker contains daemon polling configuration.
type Worker struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recap.
//
// Sections by subsystem:
//   - Paths: data/log/audio directories
//   - Alignment: forced-alignment service endpoint and breaker thresholds
//   - Analysis: content-analysis service endpoint, retry, and breaker thresholds
//   - Sync: client-side drift correction floors
//   - Worker: daemon polling interval
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Alignment Alignment `toml:"alignment"`
	Analysis  Analysis  `toml:"analysis"`
	Sync      Sync      `toml:"sync"`
	Worker    Worker    `toml:"worker"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists at
// the resolved path the defaults are used.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	// Env overrides for secrets so tokens stay out of the config file.
	if key := strings.TrimSpace(os.Getenv("RECAP_ANALYSIS_API_KEY")); key != "" {
		c.Analysis.APIKey = key
	}

	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Paths.AudioDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

// EnsureDirectories creates the configured directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.AudioDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
