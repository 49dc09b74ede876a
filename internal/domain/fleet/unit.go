package fleet

import (
	"fmt"
	"strings"
)

// Unit is a dispatchable vehicle.
type Unit struct {
	// ID is the stable identifier, usually prefixed by category (e.g. "Medic7").
	ID string `json:"id" yaml:"id"`
	// Location is free text describing where the unit is stationed.
	Location string `json:"location" yaml:"location"`
}

// FallbackRule lists the backups consulted, in order, when Primary is dispatched.
type FallbackRule struct {
	// Primary is the unit the rule belongs to.
	Primary string `json:"primary" yaml:"primary"`
	// Fallbacks are candidate unit ids in priority order.
	Fallbacks []string `json:"fallbacks" yaml:"fallbacks"`
}

// Clone returns a copy of the rule that shares no memory with r.
func (r FallbackRule) Clone() FallbackRule {
	return FallbackRule{
		Primary:   r.Primary,
		Fallbacks: append([]string(nil), r.Fallbacks...),
	}
}

// Config is the fleet document supplied by the configuration provider.
type Config struct {
	// Trucks are the configured units in display order.
	Trucks []Unit `json:"trucks" yaml:"trucks"`
	// FallbackRules holds at most one rule per primary.
	FallbackRules []FallbackRule `json:"fallback_rules" yaml:"fallback_rules"`
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	cloned := &Config{
		Trucks:        append([]Unit(nil), c.Trucks...),
		FallbackRules: make([]FallbackRule, 0, len(c.FallbackRules)),
	}

	for _, rule := range c.FallbackRules {
		cloned.FallbackRules = append(cloned.FallbackRules, rule.Clone())
	}

	return cloned
}

// Validate checks that the configuration can seed the engine.
// Every failure wraps ErrConfigurationInvalid.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is not set", ErrConfigurationInvalid)
	}

	if len(c.Trucks) == 0 {
		return fmt.Errorf("%w: no trucks configured", ErrConfigurationInvalid)
	}

	known := make(map[string]struct{}, len(c.Trucks))

	for i, unit := range c.Trucks {
		if strings.TrimSpace(unit.ID) == "" {
			return fmt.Errorf("%w: truck #%d has an empty id", ErrConfigurationInvalid, i)
		}

		if _, ok := known[unit.ID]; ok {
			return fmt.Errorf("%w: duplicate truck id %q", ErrConfigurationInvalid, unit.ID)
		}

		known[unit.ID] = struct{}{}
	}

	primaries := make(map[string]struct{}, len(c.FallbackRules))

	for _, rule := range c.FallbackRules {
		if _, ok := known[rule.Primary]; !ok {
			return fmt.Errorf("%w: fallback rule for unknown truck %q", ErrConfigurationInvalid, rule.Primary)
		}

		if _, ok := primaries[rule.Primary]; ok {
			return fmt.Errorf("%w: more than one fallback rule for %q", ErrConfigurationInvalid, rule.Primary)
		}

		primaries[rule.Primary] = struct{}{}

		for _, fallback := range rule.Fallbacks {
			if _, ok := known[fallback]; !ok {
				return fmt.Errorf("%w: rule %q lists unknown fallback %q",
					ErrConfigurationInvalid, rule.Primary, fallback)
			}
		}
	}

	return nil
}

// FleetUpdate is an admin replacement of locations and fallback rules.
type FleetUpdate struct {
	// Locations maps unit ids to new locations; empty values keep the current one.
	Locations map[string]string
	// Fallbacks maps unit ids to their complete fallback list. Units absent
	// from the map end up with an empty list.
	Fallbacks map[string][]string
}

// ParseFallbackList splits admin input such as "Medic2, Medic3" into ids,
// trimming whitespace and dropping empty items.
func ParseFallbackList(s string) []string {
	var ids []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ids = append(ids, item)
		}
	}

	return ids
}

// PrefixPredicate matches unit ids starting with prefix. An empty prefix matches everything.
func PrefixPredicate(prefix string) func(string) bool {
	return func(id string) bool {
		return strings.HasPrefix(id, prefix)
	}
}
