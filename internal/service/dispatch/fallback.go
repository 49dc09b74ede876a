package dispatch

import domain "github.com/oshokin/fleet-status/internal/domain/fleet"

// fallbackResolver picks backups for dispatched units.
type fallbackResolver struct {
	// rules are consulted in order; only the first rule for a primary counts.
	rules []domain.FallbackRule
}

// resolve returns the first fallback of primaryID's rule that is currently
// available. It reads the registry only.
//
// The primary is never returned for itself as long as it was set out before
// the call, which the coordinator guarantees.
func (f *fallbackResolver) resolve(primaryID string, registry *statusRegistry) (string, bool) {
	for _, rule := range f.rules {
		if rule.Primary != primaryID {
			continue
		}

		for _, candidate := range rule.Fallbacks {
			if status, ok := registry.status(candidate); ok && status == domain.StatusAvailable {
				return candidate, true
			}
		}

		return "", false
	}

	return "", false
}

// snapshot returns a deep copy of the rules.
func (f *fallbackResolver) snapshot() []domain.FallbackRule {
	rules := make([]domain.FallbackRule, 0, len(f.rules))
	for _, rule := range f.rules {
		rules = append(rules, rule.Clone())
	}

	return rules
}
