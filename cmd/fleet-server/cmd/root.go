package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fleet-status/internal/config"
	"github.com/oshokin/fleet-status/internal/logger"
	"github.com/oshokin/fleet-status/internal/service/server"
	"github.com/oshokin/fleet-status/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// fleetFile overrides the fleet configuration path.
	fleetFile string
	// activityLog overrides the activity log path.
	activityLog string
	// logLevel overrides the log level.
	logLevel string

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "fleet-server [listen-address]",
		Short: "Run the fleet status gRPC server.",
		Long: `Starts the gRPC server that tracks unit statuses, resolves fallbacks on dispatch
and keeps the activity log.

The server listens on the specified address or uses settings from configuration file.
Only the port from listen_addr is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
Fleet configuration is read from JSON or YAML and rewritten on admin updates.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				FleetFile:     fleetFile,
				ActivityLog:   activityLog,
				LogLevel:      logLevel,
			}

			if err := server.Run(ctx, options); err != nil {
				logger.Errorf(ctx, "Fleet server failed: %v", err)

				return err
			}

			return nil
		},
	}
)

// Execute runs the fleet-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&fleetFile, "fleet-file", "f", "", "path to fleet configuration (JSON or YAML)")
	rootCmd.Flags().StringVarP(&activityLog, "activity-log", "a", "", "path to the activity log")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}
