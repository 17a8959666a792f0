package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/metric"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/database"
)

var (
	migrateSkipPartitions bool
	partitionMonthsBack   int
	partitionMonthsAhead  int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back the embedded SQL migrations.

Metric tables are partitioned by month. 'migrate up' also creates the
monthly partitions around the current date; run 'migrate partitions'
from a scheduler to keep creating partitions ahead of time.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		applied, err := database.MigrateUp(cmd.Context(), conn.DB)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "Schema is up to date.")
		}
		for _, v := range applied {
			color.New(color.FgGreen).Fprintf(out, "✓ Applied %05d\n", v)
		}
		if migrateSkipPartitions {
			return nil
		}
		return ensurePartitions(cmd)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		v, err := database.MigrateDown(cmd.Context(), conn.DB)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if v == 0 {
			fmt.Fprintln(out, "Nothing to roll back.")
			return nil
		}
		color.New(color.FgYellow).Fprintf(out, "✗ Rolled back %05d\n", v)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		states, err := database.MigrateStatus(cmd.Context(), conn.DB)
		if err != nil {
			return err
		}
		printMigrationStates(cmd, states)
		return nil
	},
}

var migratePartitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Create missing monthly partitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ensurePartitions(cmd)
	},
}

func ensurePartitions(cmd *cobra.Command) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	n, err := database.EnsurePartitions(cmd.Context(), conn.DB, metric.PartitionedTables(), partitionMonthsBack, partitionMonthsAhead)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d partitions created\n", n)
	return nil
}

func printMigrationStates(cmd *cobra.Command, states []database.MigrationState) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)
	for _, s := range states {
		if s.Applied {
			green.Fprintf(out, "applied  %05d %s\n", s.Version, s.Path)
		} else {
			faint.Fprintf(out, "pending  %05d %s\n", s.Version, s.Path)
		}
	}
}

func init() {
	migrateUpCmd.Flags().BoolVar(&migrateSkipPartitions, "skip-partitions", false, "do not create monthly partitions after migrating")
	for _, c := range []*cobra.Command{migrateUpCmd, migratePartitionsCmd} {
		c.Flags().IntVar(&partitionMonthsBack, "months-back", 12, "months of partitions before the current month")
		c.Flags().IntVar(&partitionMonthsAhead, "months-ahead", 3, "months of partitions after the current month")
	}
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migratePartitionsCmd)
	rootCmd.AddCommand(migrateCmd)
}
