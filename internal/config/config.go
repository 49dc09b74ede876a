package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // Zone database for hosts without one.

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/fleet-status/internal/logger"
)

// Config holds the settings shared by the fleet binaries.
type Config struct {
	// ListenAddress is the gRPC address the server binds to and clients dial.
	ListenAddress string `yaml:"listen_addr"`
	// FleetFile is the path to the fleet configuration (JSON or YAML).
	FleetFile string `yaml:"fleet_file"`
	// ActivityLog is the path to the append-only activity log.
	ActivityLog string `yaml:"activity_log"`
	// Timezone is the IANA zone used to write and parse activity log timestamps.
	Timezone string `yaml:"timezone"`
	// LogRetention is how long activity log lines are kept.
	LogRetention time.Duration `yaml:"log_retention"`
	// LogisticsAlert is how long a unit may stay in logistics before it is flagged.
	LogisticsAlert time.Duration `yaml:"logistics_alert"`
	// DestinationAlert is how long a unit may stay at destination before it is flagged.
	DestinationAlert time.Duration `yaml:"destination_alert"`
	// AlertCategory is the unit id prefix counted for the low availability alert.
	AlertCategory string `yaml:"alert_category"`
	// MinAvailable is the available count at or below which the alert is raised.
	MinAvailable int `yaml:"min_available"`
	// AlertInterval is how often the background monitor evaluates alerts.
	AlertInterval time.Duration `yaml:"alert_interval"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written by the application logger.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for fleet settings.
	DefaultConfigFilename = "fleet-settings.yaml"

	// DefaultEnvFilename is the dotenv file read for overrides when present.
	DefaultEnvFilename = ".env"

	// DefaultFleetFilename is the default fleet configuration file.
	DefaultFleetFilename = "data/truck_config.json"

	// DefaultActivityLogFilename is the default activity log path.
	DefaultActivityLogFilename = "logs/activity.log"

	// DefaultTimezone is the canonical zone of the activity log.
	DefaultTimezone = "America/New_York"

	// DefaultLogRetention is how long activity log lines are kept by default.
	DefaultLogRetention = 72 * time.Hour

	// DefaultLogisticsAlert is the default logistics threshold.
	DefaultLogisticsAlert = 10 * time.Minute

	// DefaultDestinationAlert is the default destination threshold.
	DefaultDestinationAlert = 20 * time.Minute

	// DefaultAlertCategory is the default unit category watched for availability.
	DefaultAlertCategory = "Medic"

	// DefaultMinAvailable is the default low availability threshold.
	DefaultMinAvailable = 3

	// DefaultAlertInterval is the default monitor period.
	DefaultAlertInterval = 30 * time.Second

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is the default logger level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables overriding file values.
const (
	EnvListenAddress = "FLEET_LISTEN_ADDR"
	EnvFleetFile     = "FLEET_FLEET_FILE"
	EnvActivityLog   = "FLEET_ACTIVITY_LOG"
	EnvTimezone      = "FLEET_TIMEZONE"
	EnvLogLevel      = "FLEET_LOG_LEVEL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errListenAddressRequired is returned when the gRPC address is missing.
	errListenAddressRequired = errors.New("listen address must be provided")
	// errNegativeMinAvailable is returned for a negative availability threshold.
	errNegativeMinAvailable = errors.New("min_available must not be negative")
	// errUnknownLogLevel is returned when log_level is not a zap level.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Override adjusts loaded settings before validation, e.g. from command line flags.
type Override func(*Config)

// Load reads settings from the provided path, applies environment overrides
// and then the given overrides, and validates the result. A missing file
// yields settings built from the environment and defaults alone.
func Load(path string, overrides ...Override) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err := LoadEnv(DefaultEnvFilename); err != nil {
		return nil, err
	}

	ApplyEnv(&cfg, os.LookupEnv)

	for _, override := range overrides {
		override(&cfg)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadEnv loads dotenv files into the process environment, skipping missing ones.
// Variables already set in the environment are not overwritten.
func LoadEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	return nil
}

// ApplyEnv overrides settings with FLEET_* variables returned by lookup.
func ApplyEnv(cfg *Config, lookup func(key string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{EnvListenAddress, &cfg.ListenAddress},
		{EnvFleetFile, &cfg.FleetFile},
		{EnvActivityLog, &cfg.ActivityLog},
		{EnvTimezone, &cfg.Timezone},
		{EnvLogLevel, &cfg.LogLevel},
	}

	for _, o := range overrides {
		if value, ok := lookup(o.key); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ListenAddress == "" {
		return errListenAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if settings.MinAvailable < 0 {
		return errNegativeMinAvailable
	}

	applyDefaults(settings)

	if _, err := settings.Location(); err != nil {
		return err
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = DefaultTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}

	return loc, nil
}

func applyDefaults(settings *Config) {
	if settings.FleetFile == "" {
		settings.FleetFile = DefaultFleetFilename
	}

	if settings.ActivityLog == "" {
		settings.ActivityLog = DefaultActivityLogFilename
	}

	if settings.Timezone == "" {
		settings.Timezone = DefaultTimezone
	}

	if settings.LogRetention <= 0 {
		settings.LogRetention = DefaultLogRetention
	}

	if settings.LogisticsAlert <= 0 {
		settings.LogisticsAlert = DefaultLogisticsAlert
	}

	if settings.DestinationAlert <= 0 {
		settings.DestinationAlert = DefaultDestinationAlert
	}

	if settings.AlertCategory == "" {
		settings.AlertCategory = DefaultAlertCategory
	}

	// Zero means unset; a deployment that wants no low availability alert sets a category nobody matches.
	if settings.MinAvailable == 0 {
		settings.MinAvailable = DefaultMinAvailable
	}

	if settings.AlertInterval <= 0 {
		settings.AlertInterval = DefaultAlertInterval
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}
}
