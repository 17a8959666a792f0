package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/app"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/database"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

var (
	cfg   app.Config
	sugar *zap.SugaredLogger
	db    *sqlx.DB

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "healthctl",
	Short: "Operator tool for the health ingest service",
	Long: `healthctl manages the database and the identities behind the health
ingest API.

SCHEMA:

  $ healthctl migrate up        # Apply pending migrations and create partitions
  $ healthctl migrate status    # Show applied and pending migrations

USERS AND KEYS:

  $ healthctl user create alice@example.com
  $ healthctl key create <user-id> --name "iphone"
  $ healthctl key list <user-id>
  $ healthctl key revoke <key-id>

JOBS:

  $ healthctl job retry <job-id>   # Re-run a failed async job

Configuration is read from the environment (and .env), the same way the
api and worker processes read it. 'healthctl config show' prints it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = app.ConfigFromEnv()

		logCfg := cfg.Log
		if !verbose {
			logCfg.Level = "warn"
		}
		logCfg.File = ""
		lg, err := utilities.Init(logCfg)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		sugar = lg.Sugar()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			err := db.Close()
			db = nil
			return err
		}
		return nil
	},
}

// openDB connects on first use so commands that only read configuration
// never touch the database.
func openDB() (*sqlx.DB, error) {
	if db != nil {
		return db, nil
	}
	conn, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Database.Redacted().DSN, err)
	}
	db = conn
	return db, nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")
}
