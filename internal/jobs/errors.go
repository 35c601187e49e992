package jobs

import "errors"

var (
	// ErrNotFound is returned when a job id is unknown to both the registry
	// and the store.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidRequest is returned when a creation request is malformed.
	// It wraps the validation details.
	ErrInvalidRequest = errors.New("invalid job request")

	// ErrCapacityExceeded is returned by Start when the concurrency limit is
	// reached. The job stays pending and may be started later.
	ErrCapacityExceeded = errors.New("maximum concurrent jobs reached")

	// ErrInvalidState is returned when an operation does not apply to the
	// job's current state, such as starting a job that already ran.
	ErrInvalidState = errors.New("job is not in a valid state for this operation")

	// ErrShuttingDown is returned by Start once Shutdown has begun.
	ErrShuttingDown = errors.New("job manager is shutting down")
)
