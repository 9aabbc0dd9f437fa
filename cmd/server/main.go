package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plateserver/internal/app"
	"plateserver/internal/config"
	"plateserver/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		envFile string
		port    int
	)

	cmd := &cobra.Command{
		Use:          "plateserver",
		Short:        "Record-keeping API for license plate detections",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			log, err := logger.NewLogger(cfg.LogDirectory)
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApp(ctx, cfg, log)
			if err != nil {
				log.Error("Failed to start server: %v", err)
				return fmt.Errorf("failed to start server: %w", err)
			}
			defer application.Close()

			return application.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with DB_* and server settings")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides PORT)")
	cmd.SetContext(context.Background())

	return cmd
}
