package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"plateserver/internal/config"
	"plateserver/internal/database"
	"plateserver/internal/repository/sqldb"
)

func main() {
	if err := newMigrateCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newMigrateCommand creates the tables without starting the HTTP server and
// prints how many rows each table holds.
func newMigrateCommand() *cobra.Command {
	var (
		envFile string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Create the detections and authorized_plates tables if missing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg := config.Load()
			if err := cfg.Database.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migrating %s database\n", cfg.Database.Driver)

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			detections, err := sqldb.NewDetectionRepository(db).Count(ctx)
			if err != nil {
				return err
			}
			authorized, err := sqldb.NewAuthorizedPlateRepository(db).Count(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "✅ Schema is up to date\n")
			fmt.Fprintf(out, "\n📊 Database Statistics:\n")
			fmt.Fprintf(out, "   Detections: %d\n", detections)
			fmt.Fprintf(out, "   Authorized plates: %d\n", authorized)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with DB_* settings")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time allowed for connecting and migrating")
	cmd.SetContext(context.Background())

	return cmd
}
