package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why a job failed. Codes are stable strings exposed to
// API clients alongside the human-readable error message.
type ErrorCode string

// Error codes recorded on failed jobs.
const (
	ErrorCodeVideoNotFound         ErrorCode = "VIDEO_NOT_FOUND"
	ErrorCodeTranscriptUnavailable ErrorCode = "TRANSCRIPT_UNAVAILABLE"
	ErrorCodeLanguageNotSupported  ErrorCode = "LANGUAGE_NOT_SUPPORTED"
	ErrorCodeLLMAPIError           ErrorCode = "LLM_API_ERROR"
	ErrorCodeQuotaExceeded         ErrorCode = "QUOTA_EXCEEDED"
	ErrorCodeNetworkError          ErrorCode = "NETWORK_ERROR"
	ErrorCodeInvalidURL            ErrorCode = "INVALID_URL"
	ErrorCodeProcessingTimeout     ErrorCode = "PROCESSING_TIMEOUT"
	ErrorCodeInsufficientCredits   ErrorCode = "INSUFFICIENT_CREDITS"
	ErrorCodeInternal              ErrorCode = "INTERNAL_ERROR"
	ErrorCodeInterrupted           ErrorCode = "PROCESSING_INTERRUPTED"
)

// StepError ties a pipeline failure to the step that produced it and the
// code that classifies it.
type StepError struct {
	Step JobStep
	Code ErrorCode
	Err  error
}

// NewStepError wraps err with its step and classification.
func NewStepError(step JobStep, code ErrorCode, err error) *StepError {
	return &StepError{Step: step, Code: code, Err: err}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (%s)", e.Step, e.Code)
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the error code carried by err, or ErrorCodeInternal when
// err does not wrap a StepError.
func CodeOf(err error) ErrorCode {
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Code != "" {
		return stepErr.Code
	}
	return ErrorCodeInternal
}
