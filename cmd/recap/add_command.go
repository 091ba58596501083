package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "add <audio-path>",
		Short: "Queue an audio artifact for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.NewJob(cmd.Context(), userID, args[0])
			if err != nil {
				return fmt.Errorf("queue job: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued job %s for %s\n", job.ID, job.AudioPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "local", "Owning user id")
	return cmd
}
