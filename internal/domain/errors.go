package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or missing.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptySourceURL is returned when a job is built without a source URL.
	ErrEmptySourceURL = errors.New("source URL cannot be empty")

	// ErrEmptyProvider is returned when a job is built without a provider.
	ErrEmptyProvider = errors.New("provider cannot be empty")

	// ErrInvalidJobStatus is returned when a status string is not a known state.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrIllegalTransition is returned when a status change is not an edge of
	// the job state machine. Callers treat it as a programming error.
	ErrIllegalTransition = errors.New("illegal job status transition")
)
