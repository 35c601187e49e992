package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/blogtube-api/internal/artifact"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/store"
	"github.com/phrazzld/blogtube-api/internal/youtube"
)

// Service errors. Callers check them with errors.Is; the API layer maps
// them to status codes.
var (
	// ErrNotActive is returned by Cancel for a job without an active run.
	ErrNotActive = errors.New("job is not running")

	// ErrNotRetryable is returned by Retry for jobs that did not fail or
	// were not cancelled.
	ErrNotRetryable = errors.New("only failed or cancelled jobs can be retried")

	// ErrRetryLimitReached is returned by Retry once a job has used all of
	// its retries.
	ErrRetryLimitReached = errors.New("retry limit reached")

	// ErrOutputNotReady is returned by Output for jobs that have not
	// completed.
	ErrOutputNotReady = errors.New("job output is not available")
)

// passthrough lists errors returned to callers without wrapping.
var passthrough = []error{
	jobs.ErrNotFound,
	jobs.ErrInvalidRequest,
	jobs.ErrCapacityExceeded,
	jobs.ErrInvalidState,
	jobs.ErrShuttingDown,
	ErrNotActive,
	ErrNotRetryable,
	ErrRetryLimitReached,
	ErrOutputNotReady,
	youtube.ErrInvalidURL,
	youtube.ErrVideoNotFound,
	youtube.ErrTranscriptUnavailable,
	generation.ErrUnknownProvider,
}

// ServiceError adds the failed operation to an unexpected error.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps err unless it is an expected condition callers
// match on. Store not-found errors become jobs.ErrNotFound, missing
// artifacts become ErrOutputNotReady.
func newServiceError(service, operation, message string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case store.IsNotFoundError(err):
		return jobs.ErrNotFound
	case errors.Is(err, artifact.ErrNotFound):
		return ErrOutputNotReady
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewJobServiceError wraps an unexpected job service failure.
func NewJobServiceError(operation, message string, err error) error {
	return newServiceError("job", operation, message, err)
}
