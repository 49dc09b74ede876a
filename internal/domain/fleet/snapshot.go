package fleet

import (
	"strings"
	"time"
)

// DispatchResult is the outcome of dispatching a unit.
type DispatchResult struct {
	// Dispatched is the unit now out.
	Dispatched string
	// Fallback is the first available backup, valid when HasFallback is true.
	Fallback string
	// HasFallback reports whether a backup was found.
	HasFallback bool
}

// Snapshot is a consistent, copied view of the whole fleet.
type Snapshot struct {
	// TakenAt is the clock instant the snapshot was taken.
	TakenAt time.Time
	// Units are the configured units in configuration order.
	Units []Unit
	// Statuses maps every unit id to its status.
	Statuses map[string]Status
	// TimerStarts maps timed units to their timer start, formatted with TimerLayout.
	TimerStarts map[string]string
	// Alerts holds the ids of units over their timed-state threshold.
	Alerts map[string]bool
	// Category is the id prefix used for AvailableCount.
	Category string
	// AvailableCount is the number of available units in Category.
	AvailableCount int
	// LowAvailability is true when AvailableCount is at or below the configured minimum.
	LowAvailability bool
	// FallbackRules are the current rules.
	FallbackRules []FallbackRule
	// Recent holds rendered activity log entries, newest first.
	Recent []string
}

// FallbackMap renders the rules as primary -> "a, b" for admin display.
func (s *Snapshot) FallbackMap() map[string]string {
	result := make(map[string]string, len(s.FallbackRules))

	for _, rule := range s.FallbackRules {
		result[rule.Primary] = strings.Join(rule.Fallbacks, ", ")
	}

	return result
}
