package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/jobs"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [job-id]",
		Short: "Process one pending job (or a specific job) and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			logger, err := ctx.newLogger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			orch, _, _, err := buildOrchestrator(cfg, store, logger)
			if err != nil {
				return err
			}

			job, err := resolveJob(cmd.Context(), store, args)
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending jobs")
				return nil
			}

			if err := orch.Process(cmd.Context(), job); err != nil {
				return fmt.Errorf("job %s failed: %s", job.ID, job.ErrorMessage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s complete\n", job.ID)
			return nil
		},
	}
}

func resolveJob(ctx context.Context, store *jobs.Store, args []string) (*jobs.Job, error) {
	if len(args) == 1 {
		job, err := store.GetByID(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("job %s not found", args[0])
		}
		return job, nil
	}
	return store.NextPending(ctx)
}
