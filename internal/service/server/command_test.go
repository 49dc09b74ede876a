package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fleet-status/internal/config"
	"github.com/oshokin/fleet-status/internal/repository/fleetconfig"
)

// TestResolveListenAddress checks override precedence and port extraction.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("fleet.example.com:50051", "")
	require.NoError(t, err)
	require.Equal(t, ":50051", addr)

	addr, err = resolveListenAddress("fleet.example.com:50051", "127.0.0.1:7000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestOptions_Override applies flag values on top of file settings.
func TestOptions_Override(t *testing.T) {
	t.Parallel()

	opts := &Options{
		ListenAddress: ":9000",
		FleetFile:     "fleet.yaml",
		ActivityLog:   "activity.log",
		LogLevel:      "debug",
	}

	cfg := &config.Config{ListenAddress: "10.0.0.1:50051"}
	opts.override(cfg)

	require.Equal(t, "10.0.0.1:50051", cfg.ListenAddress)
	require.Equal(t, "fleet.yaml", cfg.FleetFile)
	require.Equal(t, "activity.log", cfg.ActivityLog)
	require.Equal(t, "debug", cfg.LogLevel)

	cfg = new(config.Config)
	opts.override(cfg)
	require.Equal(t, ":9000", cfg.ListenAddress)
}

// TestRun_MissingFleet fails before listening when the fleet file is absent.
func TestRun_MissingFleet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := Run(context.Background(), &Options{
		ConfigPath:    filepath.Join(dir, "settings.yaml"),
		ListenAddress: "127.0.0.1:0",
		FleetFile:     filepath.Join(dir, "fleet.json"),
		ActivityLog:   filepath.Join(dir, "activity.log"),
	})
	require.ErrorIs(t, err, fleetconfig.ErrNotFound)
}
