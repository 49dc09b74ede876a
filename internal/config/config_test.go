package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations and defaults.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing address.
	settings := new(Config)

	err := Validate(settings)
	require.Error(t, err)

	// Bad address.
	settings = &Config{
		ListenAddress: "bad:address",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Bad timezone.
	settings = &Config{
		ListenAddress: "127.0.0.1:0",
		Timezone:      "Mars/Olympus",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Bad level.
	settings = &Config{
		ListenAddress: "127.0.0.1:0",
		LogLevel:      "chatty",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Defaults.
	settings = &Config{
		ListenAddress: "127.0.0.1:0",
	}

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultFleetFilename, settings.FleetFile)
	require.Equal(t, DefaultActivityLogFilename, settings.ActivityLog)
	require.Equal(t, DefaultTimezone, settings.Timezone)
	require.Equal(t, 72*time.Hour, settings.LogRetention)
	require.Equal(t, 10*time.Minute, settings.LogisticsAlert)
	require.Equal(t, 20*time.Minute, settings.DestinationAlert)
	require.Equal(t, "Medic", settings.AlertCategory)
	require.Equal(t, 3, settings.MinAvailable)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, "info", settings.LogLevel)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ListenAddress:  "127.0.0.1:50051",
		FleetFile:      filepath.Join(dir, "fleet.yaml"),
		Timezone:       "UTC",
		LogisticsAlert: 15 * time.Minute,
		MinAvailable:   2,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ListenAddress, loaded.ListenAddress)
	require.Equal(t, settings.FleetFile, loaded.FleetFile)
	require.Equal(t, 15*time.Minute, loaded.LogisticsAlert)
	require.Equal(t, 2, loaded.MinAvailable)

	loc, err := loaded.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestApplyEnv verifies FLEET_* variables override file values and blanks are ignored.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvListenAddress: "0.0.0.0:7000",
		EnvTimezone:      "UTC",
		EnvLogLevel:      "  ",
	}

	settings := &Config{
		ListenAddress: "127.0.0.1:50051",
		LogLevel:      "debug",
	}

	ApplyEnv(settings, func(key string) (string, bool) {
		value, ok := env[key]

		return value, ok
	})

	require.Equal(t, "0.0.0.0:7000", settings.ListenAddress)
	require.Equal(t, "UTC", settings.Timezone)
	require.Equal(t, "debug", settings.LogLevel)
}

// TestLoadEnv_MissingFile ensures an absent dotenv file is not an error.
func TestLoadEnv_MissingFile(t *testing.T) {
	t.Parallel()

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), ".env")))
}

// TestLoad_MissingFileWithOverride builds settings from overrides when no file exists.
func TestLoad_MissingFileWithOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := Load(path)
	if os.Getenv(EnvListenAddress) == "" {
		require.ErrorIs(t, err, errListenAddressRequired)
	}

	loaded, err := Load(path, func(c *Config) { c.ListenAddress = "127.0.0.1:9000" })
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", loaded.ListenAddress)
	require.Equal(t, DefaultAlertInterval, loaded.AlertInterval)
}
