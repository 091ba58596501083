package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the merged transcript for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %s not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job %s  status=%s alignment=%s\n", job.ID, job.Status, job.AlignmentStatus)
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "error: %s (stage: %s)\n", job.ErrorMessage, job.ProgressStage)
			}

			doc, err := job.Document()
			if err != nil {
				return err
			}
			if doc == nil {
				fmt.Fprintln(out, "no transcript yet")
				return nil
			}

			if doc.Title != "" {
				fmt.Fprintf(out, "title: %s\n", doc.Title)
			}
			fmt.Fprintf(out, "%d speakers, %d segments, %d terms, %d topics, %d people, %s\n",
				len(doc.Speakers), len(doc.Segments), len(doc.Terms), len(doc.Topics), len(doc.People),
				formatDuration(doc.DurationMs))

			names := make(map[string]string, len(doc.Speakers))
			for _, speaker := range doc.Speakers {
				names[speaker.ID] = speaker.DisplayName
			}
			for _, segment := range doc.Segments {
				fmt.Fprintf(out, "[%s] %s: %s\n",
					formatTimestamp(segment.StartMs), names[segment.SpeakerID], segment.Text)
			}
			return nil
		},
	}
}

func formatTimestamp(ms int64) string {
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
