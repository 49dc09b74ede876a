package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fleet-status/internal/config"
	"github.com/oshokin/fleet-status/internal/service/client"
	"github.com/oshokin/fleet-status/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from settings.
	serverAddress string
	// retries is the number of extra attempts after a failed fleet file save.
	retries int

	// rootCmd represents the base command; operations are subcommands.
	rootCmd = &cobra.Command{
		Use:   "fleet-ctl",
		Short: "Operate the fleet status server.",
		Long: `Sends dispatch, status and admin commands to the fleet server.

Server address is taken from --server or from the configuration file.
Every change is attributed to the current user and host.`,
		SilenceUsage: true,
	}
)

// Execute runs the fleet-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withSession opens a session for the duration of run.
func withSession(cmd *cobra.Command, run func(ctx context.Context, s *client.Session) error) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	session, err := client.Open(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Retries:       retries,
		Output:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = session.Close()
	}()

	return run(ctx, session)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "fleet server address")
	rootCmd.PersistentFlags().IntVarP(&retries, "retries", "r", 0, "extra attempts after a failed fleet file save")
}
