package fleet

import "fmt"

// Status is the operational state of a unit.
type Status string

const (
	// StatusAvailable means the unit can be dispatched.
	StatusAvailable Status = "available"
	// StatusUnavailable means the unit is off shift or out of service.
	StatusUnavailable Status = "unavailable"
	// StatusOut means the unit has been dispatched.
	StatusOut Status = "out"
	// StatusLogistics means the unit is on a logistics run. Timed.
	StatusLogistics Status = "logistics"
	// StatusDestination means the unit is at a destination. Timed.
	StatusDestination Status = "destination"
)

// Statuses lists every valid status.
//
//nolint:gochecknoglobals // Read-only enumeration.
var Statuses = []Status{
	StatusAvailable,
	StatusUnavailable,
	StatusOut,
	StatusLogistics,
	StatusDestination,
}

// Valid reports whether s belongs to the closed enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusOut, StatusLogistics, StatusDestination:
		return true
	default:
		return false
	}
}

// IsTimed reports whether entering s starts an elapsed-time timer.
func (s Status) IsTimed() bool {
	return s == StatusLogistics || s == StatusDestination
}

// IsBusy reports whether s takes the unit out of bulk availability updates.
func (s Status) IsBusy() bool {
	return s == StatusOut || s.IsTimed()
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}

	return status, nil
}
