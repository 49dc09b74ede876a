package fleet

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/fleet-status/internal/domain/fleet"
)

// Field names of the Struct messages.
const (
	fieldDispatched      = "dispatched"
	fieldFallback        = "fallback"
	fieldUnitID          = "unit_id"
	fieldStatus          = "status"
	fieldLocations       = "locations"
	fieldFallbacks       = "fallbacks"
	fieldTakenAt         = "taken_at"
	fieldCategory        = "category"
	fieldAvailableCount  = "available_count"
	fieldLowAvailability = "low_availability"
	fieldUnits           = "units"
	fieldID              = "id"
	fieldLocation        = "location"
	fieldTimerStart      = "timer_start"
	fieldAlert           = "alert"
	fieldFallbackRules   = "fallback_rules"
	fieldPrimary         = "primary"
	fieldRecent          = "recent"
)

// errNotAString is returned when a list item or map value is not a string.
var errNotAString = errors.New("value is not a string")

// EncodeDispatchResult renders a dispatch outcome; a missing fallback is null.
func EncodeDispatchResult(result domain.DispatchResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldDispatched: structpb.NewStringValue(result.Dispatched),
		fieldFallback:   structpb.NewNullValue(),
	}

	if result.HasFallback {
		fields[fieldFallback] = structpb.NewStringValue(result.Fallback)
	}

	return &structpb.Struct{Fields: fields}
}

// DecodeDispatchResult reads a dispatch outcome.
func DecodeDispatchResult(s *structpb.Struct) domain.DispatchResult {
	fields := s.GetFields()

	result := domain.DispatchResult{
		Dispatched: fields[fieldDispatched].GetStringValue(),
	}

	if fallback, ok := fields[fieldFallback].GetKind().(*structpb.Value_StringValue); ok {
		result.Fallback = fallback.StringValue
		result.HasFallback = true
	}

	return result
}

// EncodeUnitStatus renders the status of one unit.
func EncodeUnitStatus(unitID string, status domain.Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUnitID: structpb.NewStringValue(unitID),
		fieldStatus: structpb.NewStringValue(string(status)),
	}}
}

// DecodeUnitStatus reads the status of one unit.
func DecodeUnitStatus(s *structpb.Struct) (string, domain.Status) {
	fields := s.GetFields()

	return fields[fieldUnitID].GetStringValue(), domain.Status(fields[fieldStatus].GetStringValue())
}

// EncodeIDs renders unit ids as a ListValue.
func EncodeIDs(ids []string) *structpb.ListValue {
	return &structpb.ListValue{Values: stringValues(ids)}
}

// DecodeIDs reads unit ids from a ListValue.
func DecodeIDs(list *structpb.ListValue) ([]string, error) {
	return stringItems(list.GetValues())
}

// EncodeFleetUpdate renders an admin update.
func EncodeFleetUpdate(update domain.FleetUpdate) *structpb.Struct {
	locations := make(map[string]*structpb.Value, len(update.Locations))
	for id, location := range update.Locations {
		locations[id] = structpb.NewStringValue(location)
	}

	fallbacks := make(map[string]*structpb.Value, len(update.Fallbacks))
	for id, ids := range update.Fallbacks {
		fallbacks[id] = structpb.NewListValue(EncodeIDs(ids))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldLocations: structpb.NewStructValue(&structpb.Struct{Fields: locations}),
		fieldFallbacks: structpb.NewStructValue(&structpb.Struct{Fields: fallbacks}),
	}}
}

// DecodeFleetUpdate reads an admin update. A fallback entry may be a list of
// ids or a comma-separated string as typed into the admin form.
func DecodeFleetUpdate(s *structpb.Struct) (domain.FleetUpdate, error) {
	fields := s.GetFields()

	update := domain.FleetUpdate{
		Locations: make(map[string]string),
		Fallbacks: make(map[string][]string),
	}

	for id, value := range fields[fieldLocations].GetStructValue().GetFields() {
		location, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return domain.FleetUpdate{}, fmt.Errorf("location of %q: %w", id, errNotAString)
		}

		update.Locations[id] = location.StringValue
	}

	for id, value := range fields[fieldFallbacks].GetStructValue().GetFields() {
		switch kind := value.GetKind().(type) {
		case *structpb.Value_StringValue:
			update.Fallbacks[id] = domain.ParseFallbackList(kind.StringValue)
		case *structpb.Value_ListValue:
			ids, err := stringItems(kind.ListValue.GetValues())
			if err != nil {
				return domain.FleetUpdate{}, fmt.Errorf("fallbacks of %q: %w", id, err)
			}

			update.Fallbacks[id] = ids
		default:
			return domain.FleetUpdate{}, fmt.Errorf("fallbacks of %q: %w", id, errNotAString)
		}
	}

	return update, nil
}

// EncodeSnapshot renders a fleet snapshot with one entry per unit in configuration order.
func EncodeSnapshot(s *domain.Snapshot) *structpb.Struct {
	units := make([]*structpb.Value, 0, len(s.Units))

	for _, unit := range s.Units {
		fields := map[string]*structpb.Value{
			fieldID:         structpb.NewStringValue(unit.ID),
			fieldLocation:   structpb.NewStringValue(unit.Location),
			fieldStatus:     structpb.NewStringValue(string(s.Statuses[unit.ID])),
			fieldAlert:      structpb.NewBoolValue(s.Alerts[unit.ID]),
			fieldTimerStart: structpb.NewNullValue(),
		}

		if started, ok := s.TimerStarts[unit.ID]; ok {
			fields[fieldTimerStart] = structpb.NewStringValue(started)
		}

		units = append(units, structpb.NewStructValue(&structpb.Struct{Fields: fields}))
	}

	rules := make([]*structpb.Value, 0, len(s.FallbackRules))

	for _, rule := range s.FallbackRules {
		rules = append(rules, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldPrimary:   structpb.NewStringValue(rule.Primary),
			fieldFallbacks: structpb.NewListValue(EncodeIDs(rule.Fallbacks)),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTakenAt:         structpb.NewStringValue(s.TakenAt.UTC().Format(time.RFC3339)),
		fieldCategory:        structpb.NewStringValue(s.Category),
		fieldAvailableCount:  structpb.NewNumberValue(float64(s.AvailableCount)),
		fieldLowAvailability: structpb.NewBoolValue(s.LowAvailability),
		fieldUnits:           structpb.NewListValue(&structpb.ListValue{Values: units}),
		fieldFallbackRules:   structpb.NewListValue(&structpb.ListValue{Values: rules}),
		fieldRecent:          structpb.NewListValue(EncodeIDs(s.Recent)),
	}}
}

// DecodeSnapshot reads a fleet snapshot.
func DecodeSnapshot(s *structpb.Struct) (*domain.Snapshot, error) {
	fields := s.GetFields()

	snapshot := &domain.Snapshot{
		Category:        fields[fieldCategory].GetStringValue(),
		AvailableCount:  int(fields[fieldAvailableCount].GetNumberValue()),
		LowAvailability: fields[fieldLowAvailability].GetBoolValue(),
		Statuses:        make(map[string]domain.Status),
		TimerStarts:     make(map[string]string),
		Alerts:          make(map[string]bool),
	}

	if raw := fields[fieldTakenAt].GetStringValue(); raw != "" {
		takenAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", fieldTakenAt, err)
		}

		snapshot.TakenAt = takenAt
	}

	for _, value := range fields[fieldUnits].GetListValue().GetValues() {
		unit := value.GetStructValue().GetFields()
		id := unit[fieldID].GetStringValue()

		snapshot.Units = append(snapshot.Units, domain.Unit{
			ID:       id,
			Location: unit[fieldLocation].GetStringValue(),
		})
		snapshot.Statuses[id] = domain.Status(unit[fieldStatus].GetStringValue())

		if unit[fieldAlert].GetBoolValue() {
			snapshot.Alerts[id] = true
		}

		if started, ok := unit[fieldTimerStart].GetKind().(*structpb.Value_StringValue); ok {
			snapshot.TimerStarts[id] = started.StringValue
		}
	}

	for _, value := range fields[fieldFallbackRules].GetListValue().GetValues() {
		rule := value.GetStructValue().GetFields()

		fallbacks, err := stringItems(rule[fieldFallbacks].GetListValue().GetValues())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fieldFallbackRules, err)
		}

		snapshot.FallbackRules = append(snapshot.FallbackRules, domain.FallbackRule{
			Primary:   rule[fieldPrimary].GetStringValue(),
			Fallbacks: fallbacks,
		})
	}

	recent, err := stringItems(fields[fieldRecent].GetListValue().GetValues())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fieldRecent, err)
	}

	snapshot.Recent = recent

	return snapshot, nil
}

// stringValues wraps each string in a Value.
func stringValues(items []string) []*structpb.Value {
	values := make([]*structpb.Value, 0, len(items))
	for _, item := range items {
		values = append(values, structpb.NewStringValue(item))
	}

	return values
}

// stringItems unwraps string Values, failing on any other kind. An empty input yields nil.
func stringItems(values []*structpb.Value) ([]string, error) {
	var items []string

	for i, value := range values {
		item, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("item %d: %w", i, errNotAString)
		}

		items = append(items, item.StringValue)
	}

	return items, nil
}
