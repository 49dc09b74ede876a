package dispatch

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/oshokin/fleet-status/internal/logger"
)

// DefaultMonitorInterval is how often the alert monitor evaluates the fleet.
const DefaultMonitorInterval = 30 * time.Second

// AlertMonitor periodically evaluates alerts and logs changes.
type AlertMonitor struct {
	// coordinator is the fleet being watched.
	coordinator *Coordinator
	// interval is the evaluation period.
	interval time.Duration
	// flagged holds the units flagged at the previous check.
	flagged map[string]bool
	// low is the low availability state at the previous check.
	low bool
}

// MonitorEvents describes what changed between two checks.
type MonitorEvents struct {
	// NewlyFlagged lists units that crossed their threshold since the last check, sorted.
	NewlyFlagged []string
	// Cleared lists units no longer flagged, sorted.
	Cleared []string
	// LowAvailabilityChanged is true when the availability alert toggled.
	LowAvailabilityChanged bool
	// LowAvailability is the current availability alert state.
	LowAvailability bool
	// AvailableCount is the current available count in the default category.
	AvailableCount int
}

// NewAlertMonitor creates a monitor for c. A non-positive interval uses DefaultMonitorInterval.
func NewAlertMonitor(c *Coordinator, interval time.Duration) *AlertMonitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	return &AlertMonitor{
		coordinator: c,
		interval:    interval,
		flagged:     make(map[string]bool),
	}
}

// Run checks the fleet on every tick until ctx is canceled.
func (m *AlertMonitor) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "alert-monitor")

	ticker := m.coordinator.clock.NewTicker(m.interval)
	defer ticker.Stop()

	logger.InfoKV(ctx, "Alert monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Alert monitor stopped")

			return
		case <-ticker.C:
			m.report(ctx, m.Check())
		}
	}
}

// Check evaluates the fleet once and returns the changes since the previous check.
func (m *AlertMonitor) Check() MonitorEvents {
	snapshot := m.coordinator.Snapshot("")

	events := MonitorEvents{
		LowAvailability: snapshot.LowAvailability,
		AvailableCount:  snapshot.AvailableCount,
	}

	for id := range snapshot.Alerts {
		if !m.flagged[id] {
			events.NewlyFlagged = append(events.NewlyFlagged, id)
		}
	}

	for id := range m.flagged {
		if !snapshot.Alerts[id] {
			events.Cleared = append(events.Cleared, id)
		}
	}

	slices.Sort(events.NewlyFlagged)
	slices.Sort(events.Cleared)

	events.LowAvailabilityChanged = snapshot.LowAvailability != m.low

	m.flagged = maps.Clone(snapshot.Alerts)
	m.low = snapshot.LowAvailability

	return events
}

// report logs the events of one check.
func (m *AlertMonitor) report(ctx context.Context, events MonitorEvents) {
	for _, id := range events.NewlyFlagged {
		logger.WarnKV(ctx, "Unit exceeded its timed-state limit", "unit_id", id)
	}

	for _, id := range events.Cleared {
		logger.InfoKV(ctx, "Unit alert cleared", "unit_id", id)
	}

	if !events.LowAvailabilityChanged {
		return
	}

	if events.LowAvailability {
		logger.WarnKV(ctx, "Low unit availability", "available", events.AvailableCount)
	} else {
		logger.InfoKV(ctx, "Unit availability restored", "available", events.AvailableCount)
	}
}
