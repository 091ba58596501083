package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"recap/internal/logging"
	"recap/internal/worker"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the processing daemon until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			lockPath := filepath.Join(cfg.Paths.LogDir, "recap.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("another recap daemon is already running")
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := ctx.newLogger(cfg, true)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			orch, registry, aligner, err := buildOrchestrator(cfg, store, logger)
			if err != nil {
				return err
			}

			w, err := worker.New(worker.Options{
				Queue:        store,
				Processor:    orch,
				Health:       aligner,
				Breakers:     registry,
				PollInterval: cfg.PollInterval(),
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("recap daemon started",
				logging.Args(
					logging.String("db", store.Path()),
					logging.String("lock", lockPath),
				)...)
			err = w.Run(runCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
