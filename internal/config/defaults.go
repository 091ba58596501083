package config

import "time"

const (
	defaultDataDir  = "~/.local/share/recap/data"
	defaultLogDir   = "~/.local/share/recap/logs"
	defaultAudioDir = "~/.local/share/recap/audio"

	defaultAlignmentBaseURL        = "http://127.0.0.1:8080"
	defaultAlignmentTimeoutSeconds = 600

	defaultAnalysisBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel          = "google/gemini-3-flash-preview"
	defaultAnalysisTimeoutSeconds = 120
	defaultAnalysisRetryAttempts  = 4

	// Alignment is the scarce, costly dependency: trip early. Analysis is
	// cheap to retry, so its breaker tolerates more transient failures.
	defaultAlignmentFailureThreshold = 3
	defaultAnalysisFailureThreshold  = 8
	defaultBreakerResetSeconds       = 60
	defaultBreakerHalfOpenRequests   = 2

	defaultDriftAbsFloorMs = 2000
	defaultDriftRelFloor   = 0.05

	defaultPollIntervalSeconds = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			AudioDir: defaultAudioDir,
		},
		Alignment: Alignment{
			BaseURL:        defaultAlignmentBaseURL,
			TimeoutSeconds: defaultAlignmentTimeoutSeconds,
			Breaker: Breaker{
				FailureThreshold:    defaultAlignmentFailureThreshold,
				ResetTimeoutSeconds: defaultBreakerResetSeconds,
				HalfOpenRequests:    defaultBreakerHalfOpenRequests,
			},
		},
		Analysis: Analysis{
			BaseURL:          defaultAnalysisBaseURL,
			Model:            defaultAnalysisModel,
			TimeoutSeconds:   defaultAnalysisTimeoutSeconds,
			RetryMaxAttempts: defaultAnalysisRetryAttempts,
			Breaker: Breaker{
				FailureThreshold:    defaultAnalysisFailureThreshold,
				ResetTimeoutSeconds: defaultBreakerResetSeconds,
				HalfOpenRequests:    defaultBreakerHalfOpenRequests,
			},
		},
		Sync: Sync{
			DriftAbsFloorMs: defaultDriftAbsFloorMs,
			DriftRelFloor:   defaultDriftRelFloor,
		},
		Worker: Worker{
			PollIntervalSeconds: defaultPollIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// PollInterval returns the worker poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	seconds := c.Worker.PollIntervalSeconds
	if seconds <= 0 {
		seconds = defaultPollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ResetTimeout returns the breaker reset timeout as a duration.
func (b Breaker) ResetTimeout() time.Duration {
	seconds := b.ResetTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultBreakerResetSeconds
	}
	return time.Duration(seconds) * time.Second
}
