package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/job"
	jobrepo "github.com/ovaphlow/pitchfork/service-health-ingest/internal/job/repo"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage async processing jobs",
}

var jobRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Move a failed job back to pending",
	Long: `Move a failed job back to pending so a runner picks it up again.

Only failed jobs can be retried. The raw payload is reprocessed from the
stored ingestion; rows already written are upserted again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("job", args[0])
		if err != nil {
			return err
		}
		conn, err := openDB()
		if err != nil {
			return err
		}
		svc := job.NewService(jobrepo.NewJobRepo(conn))
		if err := svc.Retry(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to retry job: %w", err)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Job %s queued for retry\n", id)
		return nil
	},
}

func init() {
	jobCmd.AddCommand(jobRetryCmd)
	rootCmd.AddCommand(jobCmd)
}
