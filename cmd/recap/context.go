package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"recap/internal/breaker"
	"recap/internal/config"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/pipeline"
	"recap/internal/services/align"
	"recap/internal/services/analyze"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*jobs.Store, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open job store: %w", err)
	}
	return store, cfg, nil
}

func (c *commandContext) newLogger(cfg *config.Config, toFile bool) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	if toFile && cfg.Paths.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "recap.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

func breakerSettings(name string, b config.Breaker) breaker.Settings {
	return breaker.Settings{
		Name:             name,
		FailureThreshold: b.FailureThreshold,
		ResetTimeout:     b.ResetTimeout(),
		HalfOpenRequests: b.HalfOpenRequests,
	}
}

// buildOrchestrator wires the pipeline: shared breaker registry, service
// clients, media source, and the log-backed metrics sink.
func buildOrchestrator(cfg *config.Config, store *jobs.Store, logger *slog.Logger) (*pipeline.Orchestrator, *breaker.Registry, *align.Client, error) {
	registry := breaker.NewRegistry()
	alignBreaker := registry.Register(breakerSettings("alignment", cfg.Alignment.Breaker))
	analyzeBreaker := registry.Register(breakerSettings("analysis", cfg.Analysis.Breaker))

	aligner := align.NewClient(align.Config{
		BaseURL:        cfg.Alignment.BaseURL,
		TimeoutSeconds: cfg.Alignment.TimeoutSeconds,
	})
	analyzer := analyze.NewClient(analyze.Config{
		BaseURL:          cfg.Analysis.BaseURL,
		APIKey:           cfg.Analysis.APIKey,
		Model:            cfg.Analysis.Model,
		TimeoutSeconds:   cfg.Analysis.TimeoutSeconds,
		RetryMaxAttempts: cfg.Analysis.RetryMaxAttempts,
	})

	orch, err := pipeline.New(pipeline.Options{
		Store:          store,
		Source:         media.NewFileSource(cfg.Paths.AudioDir),
		Aligner:        aligner,
		Analyzer:       analyzer,
		AlignBreaker:   alignBreaker,
		AnalyzeBreaker: analyzeBreaker,
		Metrics:        pipeline.NewLogSink(logger),
		Logger:         logger,
		SpeakerHint:    cfg.Alignment.SpeakerHint,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return orch, registry, aligner, nil
}
