package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recap/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queued jobs and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var filters []jobs.Status
			if statusFilter != "" {
				status, ok := jobs.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filters = append(filters, status)
			}

			list, err := store.List(cmd.Context(), filters...)
			if err != nil {
				return err
			}
			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					string(job.AlignmentStatus),
					job.ProgressStage,
					formatDuration(job.DurationMs),
					job.UpdatedAt.Local().Format(time.DateTime),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "STATUS", "ALIGNMENT", "STAGE", "DURATION", "UPDATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "total %d: %d pending, %d processing, %d complete, %d failed\n",
				health.Total, health.Pending, health.Processing, health.Complete, health.Failed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by job status")
	return cmd
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	seconds := ms / 1000
	if seconds < 60 {
		return strconv.FormatInt(seconds, 10) + "s"
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
