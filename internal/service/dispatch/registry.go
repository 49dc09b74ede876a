package dispatch

import (
	"fmt"
	"maps"
	"time"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// statusRegistry holds the status of every configured unit and the start of
// its timer while it is in a timed state.
//
// Invariant: timers has an entry for id iff statuses[id].IsTimed().
type statusRegistry struct {
	// order is the configuration order of unit ids.
	order []string
	// statuses maps every configured unit to its status.
	statuses map[string]domain.Status
	// timers maps units in timed states to the instant they entered it.
	timers map[string]time.Time
}

// newStatusRegistry registers every unit as available.
func newStatusRegistry(units []domain.Unit) *statusRegistry {
	r := &statusRegistry{
		order:    make([]string, 0, len(units)),
		statuses: make(map[string]domain.Status, len(units)),
		timers:   make(map[string]time.Time),
	}

	for _, unit := range units {
		r.order = append(r.order, unit.ID)
		r.statuses[unit.ID] = domain.StatusAvailable
	}

	return r
}

// set overwrites the status of id. No transition is rejected.
func (r *statusRegistry) set(id string, status domain.Status, now time.Time) error {
	if _, ok := r.statuses[id]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownUnit, id)
	}

	r.statuses[id] = status

	if status.IsTimed() {
		r.timers[id] = now
	} else {
		delete(r.timers, id)
	}

	return nil
}

// status returns the status of id.
func (r *statusRegistry) status(id string) (domain.Status, bool) {
	status, ok := r.statuses[id]

	return status, ok
}

// has reports whether id is registered.
func (r *statusRegistry) has(id string) bool {
	_, ok := r.statuses[id]

	return ok
}

// all returns a copy of every status.
func (r *statusRegistry) all() map[string]domain.Status {
	return maps.Clone(r.statuses)
}

// timerStarts returns a copy of the timer map.
func (r *statusRegistry) timerStarts() map[string]time.Time {
	return maps.Clone(r.timers)
}

// availableCount counts available units whose id satisfies match.
func (r *statusRegistry) availableCount(match func(id string) bool) int {
	count := 0

	for _, id := range r.order {
		if r.statuses[id] == domain.StatusAvailable && (match == nil || match(id)) {
			count++
		}
	}

	return count
}
