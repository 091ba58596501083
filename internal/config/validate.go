package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if strings.TrimSpace(c.Alignment.BaseURL) == "" {
		return errors.New("alignment.base_url must be set")
	}
	if c.Alignment.SpeakerHint < 0 {
		return errors.New("alignment.speaker_hint must not be negative")
	}
	return validateBreaker("alignment", c.Alignment.Breaker)
}

func (c *Config) validateAnalysis() error {
	if strings.TrimSpace(c.Analysis.BaseURL) == "" {
		return errors.New("analysis.base_url must be set")
	}
	if c.Analysis.RetryMaxAttempts < 0 {
		return errors.New("analysis.retry_max_attempts must not be negative")
	}
	return validateBreaker("analysis", c.Analysis.Breaker)
}

func (c *Config) validateSync() error {
	if c.Sync.DriftAbsFloorMs < 0 {
		return errors.New("sync.drift_abs_floor_ms must not be negative")
	}
	if c.Sync.DriftRelFloor < 0 || c.Sync.DriftRelFloor > 1 {
		return errors.New("sync.drift_rel_floor must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func validateBreaker(section string, b Breaker) error {
	if b.FailureThreshold < 1 {
		return fmt.Errorf("%s.breaker.failure_threshold must be at least 1", section)
	}
	if b.ResetTimeoutSeconds < 1 {
		return fmt.Errorf("%s.breaker.reset_timeout_seconds must be at least 1", section)
	}
	if b.HalfOpenRequests < 1 {
		return fmt.Errorf("%s.breaker.half_open_requests must be at least 1", section)
	}
	return nil
}
