package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oshokin/fleet-status/internal/config"
	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
	"github.com/oshokin/fleet-status/internal/logger"
	"github.com/oshokin/fleet-status/internal/service/common"
)

// Options configures how fleet-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the address from settings when specified.
	ServerAddress string
	// Retries is how many extra attempts an admin update gets after its save failed.
	Retries int
	// Output receives the human-readable result.
	Output io.Writer
}

// defaultRetryInterval is the delay between attempts after a retryable failure.
const defaultRetryInterval = 1 * time.Second

// Session is an open connection to the fleet server.
type Session struct {
	// client performs the calls.
	client *common.Client
	// opts are the options the session was opened with.
	opts *Options
	// retryInterval is the delay between attempts.
	retryInterval time.Duration
}

// Open loads settings, detects the operator and connects to the server.
// The caller must Close the session.
func Open(ctx context.Context, opts *Options) (*Session, error) {
	serverAddress := opts.ServerAddress
	timeout := config.DefaultTimeout

	// Settings are only required when no address was given explicitly.
	if serverAddress == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}

		serverAddress = cfg.ListenAddress
		timeout = cfg.Timeout
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, err
	}

	c, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(timeout), common.WithActor(actor))
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connected to fleet server", "server_address", serverAddress, "actor", actor.String())

	return NewSession(c, opts), nil
}

// NewSession wraps an existing client.
func NewSession(c *common.Client, opts *Options) *Session {
	if opts == nil {
		opts = new(Options)
	}

	return &Session{client: c, opts: opts, retryInterval: defaultRetryInterval}
}

// Close releases the connection.
func (s *Session) Close() error {
	return s.client.Close()
}

// Dispatch sends a unit out and prints the dispatched unit and its fallback.
// The outcome is printed even when the server applied the dispatch but failed
// to log it; that error is still returned.
func (s *Session) Dispatch(ctx context.Context, unitID string) error {
	result, err := s.client.Dispatch(ctx, unitID)
	if result.Dispatched != "" {
		fallback := "none available"
		if result.HasFallback {
			fallback = result.Fallback
		}

		s.printf("%s dispatched, fallback: %s\n", result.Dispatched, fallback)
	}

	if errors.Is(err, domain.ErrLogWrite) {
		logger.WarnKV(ctx, "Dispatch applied but not logged", "unit_id", unitID, "error", err)
	}

	return err
}

// Transition applies one of the single-unit status changes and prints the new status.
func (s *Session) Transition(ctx context.Context, target domain.Status, unitID string) error {
	var call func(context.Context, string) (domain.Status, error)

	switch target {
	case domain.StatusLogistics:
		call = s.client.MarkLogistics
	case domain.StatusDestination:
		call = s.client.MarkDestination
	case domain.StatusAvailable:
		call = s.client.Reset
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidStatus, target)
	}

	status, err := call(ctx, unitID)
	if err != nil {
		return err
	}

	s.printf("%s → %s\n", unitID, status)

	return nil
}

// SetAvailability marks the selected units available. An empty selection marks
// every idle unit unavailable.
func (s *Session) SetAvailability(ctx context.Context, selected []string) error {
	if err := s.client.SetAvailability(ctx, selected); err != nil {
		return err
	}

	if len(selected) == 0 {
		s.printf("available: none\n")

		return nil
	}

	s.printf("available: %s\n", strings.Join(selected, ", "))

	return nil
}

// UpdateFleet sends an admin update. A failed save is retried: the server
// already applied the update, and applying it again is harmless.
func (s *Session) UpdateFleet(ctx context.Context, update domain.FleetUpdate) error {
	if err := s.retry(ctx, func() error { return s.client.UpdateFleet(ctx, update) }); err != nil {
		return err
	}

	s.printf("fleet updated\n")

	return nil
}

// Status prints a snapshot of the fleet.
func (s *Session) Status(ctx context.Context, category string) error {
	snapshot, err := s.client.Snapshot(ctx, category)
	if err != nil {
		return err
	}

	return WriteSnapshot(s.output(), snapshot)
}

// WriteSnapshot renders a snapshot as a table followed by the fallback map and recent activity.
func WriteSnapshot(w io.Writer, snapshot *domain.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "UNIT\tLOCATION\tSTATUS\tSINCE\tALERT")

	for _, unit := range snapshot.Units {
		alert := ""
		if snapshot.Alerts[unit.ID] {
			alert = "!"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			unit.ID, unit.Location, snapshot.Statuses[unit.ID], snapshot.TimerStarts[unit.ID], alert)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	fmt.Fprintf(w, "\n%s available: %d", snapshot.Category, snapshot.AvailableCount)

	if snapshot.LowAvailability {
		fmt.Fprint(w, " (LOW)")
	}

	fmt.Fprintln(w)

	fallbacks := snapshot.FallbackMap()
	if len(fallbacks) > 0 {
		fmt.Fprintln(w, "\nFallbacks:")

		for _, primary := range slices.Sorted(maps.Keys(fallbacks)) {
			fmt.Fprintf(w, "  %s: %s\n", primary, fallbacks[primary])
		}
	}

	if len(snapshot.Recent) > 0 {
		fmt.Fprintln(w, "\nRecent activity:")

		for _, line := range snapshot.Recent {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	return nil
}

// retry runs call, repeating it up to opts.Retries times while the failure is retryable.
// Only idempotent requests may go through it.
func (s *Session) retry(ctx context.Context, call func() error) error {
	err := call()
	if err == nil || !domain.IsRetryable(err) || s.opts.Retries <= 0 {
		return err
	}

	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.opts.Retries; attempt++ {
		logger.WarnKV(ctx, "Retrying after failure", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err = call(); err == nil || !domain.IsRetryable(err) {
			return err
		}
	}

	return err
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.output(), format, args...)
}

func (s *Session) output() io.Writer {
	if s.opts.Output == nil {
		return io.Discard
	}

	return s.opts.Output
}
