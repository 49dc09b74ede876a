package dispatch

import (
	"time"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

const (
	// DefaultLogisticsAlert is how long a unit may stay in logistics before it is flagged.
	DefaultLogisticsAlert = 10 * time.Minute
	// DefaultDestinationAlert is how long a unit may stay at a destination before it is flagged.
	DefaultDestinationAlert = 20 * time.Minute
)

// AlertThresholds holds the per-state elapsed time limits.
type AlertThresholds struct {
	// Logistics is the limit for StatusLogistics.
	Logistics time.Duration
	// Destination is the limit for StatusDestination.
	Destination time.Duration
}

// DefaultAlertThresholds returns the stock limits.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		Logistics:   DefaultLogisticsAlert,
		Destination: DefaultDestinationAlert,
	}
}

// limit returns the threshold for status and whether it has one.
func (t AlertThresholds) limit(status domain.Status) (time.Duration, bool) {
	switch status {
	case domain.StatusLogistics:
		return t.Logistics, true
	case domain.StatusDestination:
		return t.Destination, true
	default:
		return 0, false
	}
}

// AlertReport is the per-unit result of an alert evaluation.
type AlertReport struct {
	// Flagged holds units that exceeded their threshold.
	Flagged map[string]bool
	// TimerStarts maps every timed unit with a timer to its start in UTC.
	TimerStarts map[string]string
}

// evaluateAlerts flags units whose timer has run for at least the threshold
// of their current state. A timed unit without a timer is neither flagged nor
// reported.
func evaluateAlerts(
	now time.Time,
	statuses map[string]domain.Status,
	timers map[string]time.Time,
	thresholds AlertThresholds,
) AlertReport {
	report := AlertReport{
		Flagged:     make(map[string]bool),
		TimerStarts: make(map[string]string),
	}

	for id, status := range statuses {
		limit, timed := thresholds.limit(status)
		if !timed {
			continue
		}

		started, ok := timers[id]
		if !ok {
			continue
		}

		report.TimerStarts[id] = started.UTC().Format(domain.TimerLayout)

		if now.Sub(started) >= limit {
			report.Flagged[id] = true
		}
	}

	return report
}
