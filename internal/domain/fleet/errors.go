package fleet

import "errors"

var (
	// ErrUnknownUnit is returned when an operation references an id absent from the registry.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrConfigurationInvalid is returned when a configuration or admin update is rejected.
	// Nothing is mutated when it is returned.
	ErrConfigurationInvalid = errors.New("configuration invalid")
	// ErrLogWrite is returned when the activity log could not be persisted.
	// The status change that triggered the write is kept.
	ErrLogWrite = errors.New("activity log write failed")
	// ErrConfigPersist is returned when an applied admin update could not be saved.
	ErrConfigPersist = errors.New("configuration persist failed")
	// ErrInvalidStatus is returned when a status name is not one of Statuses.
	ErrInvalidStatus = errors.New("invalid status")
)

// IsRetryable reports whether the request that failed with err can be sent again
// without changing the outcome. A log write failure means the status change was
// already applied, so repeating it would restart timers and duplicate log lines.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConfigPersist)
}
