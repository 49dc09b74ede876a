package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/fleet-status/internal/api/grpc/fleet"
	"github.com/oshokin/fleet-status/internal/config"
	"github.com/oshokin/fleet-status/internal/logger"
	"github.com/oshokin/fleet-status/internal/repository/activitylog"
	"github.com/oshokin/fleet-status/internal/repository/fleetconfig"
	"github.com/oshokin/fleet-status/internal/service/dispatch"
)

// Options controls the fleet-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// FleetFile overrides the fleet configuration path from settings.
	FleetFile string
	// ActivityLog overrides the activity log path from settings.
	ActivityLog string
	// LogLevel overrides the log level from settings.
	LogLevel string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads settings and the fleet first, then determines the listen address from
// settings or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "fleet-server")

	settings, err := config.Load(opts.ConfigPath, opts.override)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	location, err := settings.Location()
	if err != nil {
		return err
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	provider := fleetconfig.NewFileProvider(settings.FleetFile)

	fleet, err := provider.Load(ctx)
	if err != nil {
		return fmt.Errorf("load fleet %s: %w", settings.FleetFile, err)
	}

	coordinator, err := dispatch.New(
		fleet,
		activitylog.NewFileSink(settings.ActivityLog),
		dispatch.WithLocation(location),
		dispatch.WithRetention(settings.LogRetention),
		dispatch.WithAlertThresholds(dispatch.AlertThresholds{
			Logistics:   settings.LogisticsAlert,
			Destination: settings.DestinationAlert,
		}),
		dispatch.WithAvailabilityAlert(settings.AlertCategory, settings.MinAvailable),
		dispatch.WithProvider(provider),
	)
	if err != nil {
		return fmt.Errorf("initialise coordinator: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(api.ActorInterceptor))
	api.RegisterFleetServiceServer(grpcServer, api.NewServer(coordinator))

	go dispatch.NewAlertMonitor(coordinator, settings.AlertInterval).Run(ctx)

	logger.InfoKV(ctx, "Fleet server listening",
		"listen_address", listenAddress,
		"fleet_file", settings.FleetFile,
		"activity_log", settings.ActivityLog,
		"units", len(fleet.Trucks),
		"timezone", location.String(),
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// override applies command line values on top of the settings file.
func (o *Options) override(cfg *config.Config) {
	if o.ListenAddress != "" && cfg.ListenAddress == "" {
		cfg.ListenAddress = o.ListenAddress
	}

	if o.FleetFile != "" {
		cfg.FleetFile = o.FleetFile
	}

	if o.ActivityLog != "" {
		cfg.ActivityLog = o.ActivityLog
	}

	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
