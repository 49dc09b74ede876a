package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/fleet-status/internal/clock"
	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
	"github.com/oshokin/fleet-status/internal/logger"
	"github.com/oshokin/fleet-status/internal/repository/activitylog"
	"github.com/oshokin/fleet-status/internal/repository/fleetconfig"
)

const (
	// DefaultCategory is the id prefix counted for the low availability alert.
	DefaultCategory = "Medic"
	// DefaultMinAvailable is the available count at or below which the alert is raised.
	DefaultMinAvailable = 3
)

// errSinkRequired is returned by New without an activity log sink.
var errSinkRequired = errors.New("activity log sink is required")

// Coordinator owns the fleet state and exposes every dispatch operation.
type Coordinator struct {
	// clock supplies every timestamp.
	clock clock.Clock
	// provider persists admin updates; nil keeps them in memory only.
	provider fleetconfig.Provider
	// thresholds are the timed-state alert limits.
	thresholds AlertThresholds
	// category is the default id prefix for availability counting.
	category string
	// minAvailable is the low availability threshold, inclusive.
	minAvailable int

	// mu guards everything below.
	mu sync.RWMutex
	// units are the configured units in configuration order.
	units []domain.Unit
	// registry holds statuses and timers.
	registry *statusRegistry
	// resolver holds the fallback rules.
	resolver *fallbackResolver
	// log is the activity log.
	log *activityLog
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

// WithLocation sets the canonical activity log zone.
func WithLocation(loc *time.Location) Option {
	return func(co *Coordinator) {
		if loc != nil {
			co.log.location = loc
		}
	}
}

// WithRetention sets how long persisted log lines are kept.
func WithRetention(retention time.Duration) Option {
	return func(co *Coordinator) {
		if retention > 0 {
			co.log.retention = retention
		}
	}
}

// WithAlertThresholds overrides the timed-state limits. Zero fields keep their defaults.
func WithAlertThresholds(thresholds AlertThresholds) Option {
	return func(co *Coordinator) {
		if thresholds.Logistics > 0 {
			co.thresholds.Logistics = thresholds.Logistics
		}

		if thresholds.Destination > 0 {
			co.thresholds.Destination = thresholds.Destination
		}
	}
}

// WithAvailabilityAlert sets the counted category and its inclusive minimum.
func WithAvailabilityAlert(category string, minAvailable int) Option {
	return func(co *Coordinator) {
		co.category = category
		co.minAvailable = minAvailable
	}
}

// WithProvider persists admin updates through p.
func WithProvider(p fleetconfig.Provider) Option {
	return func(co *Coordinator) {
		co.provider = p
	}
}

// New validates cfg and builds a Coordinator with every unit available.
func New(cfg *domain.Config, sink activitylog.Sink, opts ...Option) (*Coordinator, error) {
	if sink == nil {
		return nil, errSinkRequired
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.Clone()

	c := &Coordinator{
		clock:        clock.Real(),
		thresholds:   DefaultAlertThresholds(),
		category:     DefaultCategory,
		minAvailable: DefaultMinAvailable,
		units:        cfg.Trucks,
		registry:     newStatusRegistry(cfg.Trucks),
		resolver:     &fallbackResolver{rules: cfg.FallbackRules},
		log: &activityLog{
			sink:      sink,
			location:  time.UTC,
			retention: DefaultLogRetention,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Dispatch sets primaryID out, logs it and resolves its fallback. When only
// the log write fails, the result is filled and the error wraps
// fleet.ErrLogWrite.
func (c *Coordinator) Dispatch(ctx context.Context, primaryID string) (domain.DispatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := domain.DispatchResult{Dispatched: primaryID}

	// A failed log write still leaves the unit out, so the fallback is resolved anyway.
	err := c.transition(ctx, primaryID, domain.StatusOut)
	if err != nil && !errors.Is(err, domain.ErrLogWrite) {
		return result, err
	}

	result.Fallback, result.HasFallback = c.resolver.resolve(primaryID, c.registry)

	logger.InfoKV(ctx, "Unit dispatched",
		"unit_id", primaryID,
		"fallback", result.Fallback,
		"has_fallback", result.HasFallback)

	return result, err
}

// MarkLogistics moves unitID into logistics and starts its timer.
func (c *Coordinator) MarkLogistics(ctx context.Context, unitID string) error {
	return c.apply(ctx, unitID, domain.StatusLogistics)
}

// MarkDestination moves unitID to a destination and starts its timer.
func (c *Coordinator) MarkDestination(ctx context.Context, unitID string) error {
	return c.apply(ctx, unitID, domain.StatusDestination)
}

// Reset makes unitID available from any status and clears its timer.
func (c *Coordinator) Reset(ctx context.Context, unitID string) error {
	return c.apply(ctx, unitID, domain.StatusAvailable)
}

// SetAvailability marks every idle unit available when selected and
// unavailable otherwise. Units that are out or in a timed state are left
// alone. Every idle unit gets a log entry; log failures are joined and
// returned after all statuses are applied.
func (c *Coordinator) SetAvailability(ctx context.Context, selected []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	chosen := make(map[string]struct{}, len(selected))

	for _, id := range selected {
		if !c.registry.has(id) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownUnit, id)
		}

		chosen[id] = struct{}{}
	}

	var errs []error

	for _, id := range c.registry.order {
		current, _ := c.registry.status(id)
		if current.IsBusy() {
			continue
		}

		status := domain.StatusUnavailable
		if _, ok := chosen[id]; ok {
			status = domain.StatusAvailable
		}

		if err := c.transition(ctx, id, status); err != nil {
			errs = append(errs, err)
		}
	}

	logger.InfoKV(ctx, "Availability updated", "selected", len(chosen))

	return errors.Join(errs...)
}

// UpdateLocationsAndFallbacks validates update, replaces locations and the
// whole rule set, and persists the result through the provider. An invalid
// update changes nothing. A failed save leaves the update applied and returns
// an error wrapping fleet.ErrConfigPersist.
func (c *Coordinator) UpdateLocationsAndFallbacks(ctx context.Context, update domain.FleetUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validateUpdate(update); err != nil {
		return err
	}

	units := slices.Clone(c.units)

	for i := range units {
		if location := update.Locations[units[i].ID]; location != "" {
			units[i].Location = location
		}
	}

	rules := make([]domain.FallbackRule, 0, len(units))
	for _, unit := range units {
		rules = append(rules, domain.FallbackRule{
			Primary:   unit.ID,
			Fallbacks: slices.Clone(update.Fallbacks[unit.ID]),
		})
	}

	c.units = units
	c.resolver.rules = rules

	logger.InfoKV(ctx, "Fleet locations and fallback rules replaced", "rules", len(rules))

	if c.provider == nil {
		return nil
	}

	cfg := &domain.Config{
		Trucks:        slices.Clone(units),
		FallbackRules: c.resolver.snapshot(),
	}

	if err := c.provider.Save(ctx, cfg); err != nil {
		logger.ErrorKV(ctx, "Failed to persist fleet configuration", "error", err)

		return fmt.Errorf("%w: %w", domain.ErrConfigPersist, err)
	}

	return nil
}

// Status returns the current status of unitID.
func (c *Coordinator) Status(unitID string) (domain.Status, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status, ok := c.registry.status(unitID)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownUnit, unitID)
	}

	return status, nil
}

// AvailableCount counts available units whose id satisfies match.
func (c *Coordinator) AvailableCount(match func(id string) bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.registry.availableCount(match)
}

// Alerts evaluates the timed-state alerts at now.
func (c *Coordinator) Alerts(now time.Time) AlertReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return evaluateAlerts(now, c.registry.statuses, c.registry.timers, c.thresholds)
}

// Snapshot returns a copied view of the fleet. An empty category uses the
// configured one.
func (c *Coordinator) Snapshot(category string) *domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if category == "" {
		category = c.category
	}

	var (
		now    = c.clock.Now()
		report = evaluateAlerts(now, c.registry.statuses, c.registry.timers, c.thresholds)
		count  = c.registry.availableCount(domain.PrefixPredicate(category))
	)

	return &domain.Snapshot{
		TakenAt:         now,
		Units:           slices.Clone(c.units),
		Statuses:        c.registry.all(),
		TimerStarts:     report.TimerStarts,
		Alerts:          report.Flagged,
		Category:        category,
		AvailableCount:  count,
		LowAvailability: count <= c.minAvailable,
		FallbackRules:   c.resolver.snapshot(),
		Recent:          c.log.newestFirst(),
	}
}

// apply runs a single-unit transition under the lock.
func (c *Coordinator) apply(ctx context.Context, unitID string, status domain.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transition(ctx, unitID, status); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Unit status changed", "unit_id", unitID, "status", status)

	return nil
}

// transition sets the status and then records it. Callers hold mu.
func (c *Coordinator) transition(ctx context.Context, unitID string, status domain.Status) error {
	now := c.clock.Now()

	if err := c.registry.set(unitID, status, now); err != nil {
		return err
	}

	if err := c.log.record(ctx, unitID, status, now); err != nil {
		logger.ErrorKV(ctx, "Status changed but activity log was not written",
			"unit_id", unitID, "status", status, "error", err)

		return err
	}

	return nil
}

// validateUpdate rejects updates referencing unknown units or empty ids.
func (c *Coordinator) validateUpdate(update domain.FleetUpdate) error {
	for id := range update.Locations {
		if !c.registry.has(id) {
			return fmt.Errorf("%w: location for unknown truck %q", domain.ErrConfigurationInvalid, id)
		}
	}

	for id, fallbacks := range update.Fallbacks {
		if !c.registry.has(id) {
			return fmt.Errorf("%w: fallbacks for unknown truck %q", domain.ErrConfigurationInvalid, id)
		}

		for _, fallback := range fallbacks {
			if !c.registry.has(fallback) {
				return fmt.Errorf("%w: truck %q lists unknown fallback %q",
					domain.ErrConfigurationInvalid, id, fallback)
			}
		}
	}

	return nil
}
