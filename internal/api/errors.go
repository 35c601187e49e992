package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/redact"
	"github.com/phrazzld/blogtube-api/internal/service"
	"github.com/phrazzld/blogtube-api/internal/youtube"
)

// Machine-readable codes carried in error responses.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidURL       = "INVALID_URL"
	CodeNotFound         = "NOT_FOUND"
	CodeVideoNotFound    = "VIDEO_NOT_FOUND"
	CodeUnknownProvider  = "UNKNOWN_PROVIDER"
	CodeInvalidState     = "INVALID_STATE"
	CodeNotReady         = "OUTPUT_NOT_READY"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeShuttingDown     = "SHUTTING_DOWN"
	CodeUpstream         = "UPSTREAM_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. Unknown
// errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case isBadRequest(err):
		return http.StatusBadRequest

	case errors.Is(err, jobs.ErrNotFound),
		errors.Is(err, youtube.ErrVideoNotFound),
		errors.Is(err, generation.ErrUnknownProvider):
		return http.StatusNotFound

	case errors.Is(err, jobs.ErrInvalidState),
		errors.Is(err, service.ErrNotActive),
		errors.Is(err, service.ErrNotRetryable),
		errors.Is(err, service.ErrRetryLimitReached),
		errors.Is(err, service.ErrOutputNotReady):
		return http.StatusConflict

	case errors.Is(err, jobs.ErrCapacityExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, youtube.ErrTransient):
		return http.StatusBadGateway

	case errors.Is(err, jobs.ErrShuttingDown):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

func isBadRequest(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var validationErrs validator.ValidationErrors
	return errors.Is(err, jobs.ErrInvalidRequest) ||
		errors.Is(err, youtube.ErrInvalidURL) ||
		errors.Is(err, shared.ErrEmptyBody) ||
		errors.Is(err, shared.ErrInvalidJSON) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &validationErrs)
}

// ErrorCode returns the machine-readable code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		return CodeInvalidURL
	case isBadRequest(err):
		return CodeInvalidRequest
	case errors.Is(err, youtube.ErrVideoNotFound):
		return CodeVideoNotFound
	case errors.Is(err, generation.ErrUnknownProvider):
		return CodeUnknownProvider
	case errors.Is(err, jobs.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, service.ErrOutputNotReady):
		return CodeNotReady
	case MapErrorToStatusCode(err) == http.StatusConflict:
		return CodeInvalidState
	case errors.Is(err, jobs.ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, jobs.ErrShuttingDown):
		return CodeShuttingDown
	case errors.Is(err, youtube.ErrTransient):
		return CodeUpstream
	default:
		return CodeInternal
	}
}

// GetSafeErrorMessage returns a client-safe message for err. Internal
// details never leak through it.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, jobs.ErrInvalidRequest):
		return redact.String(strings.TrimPrefix(err.Error(), jobs.ErrInvalidRequest.Error()+": "))
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case isBadRequest(err) && !errors.Is(err, youtube.ErrInvalidURL):
		return "Invalid request format"
	case errors.Is(err, youtube.ErrInvalidURL):
		return "Invalid YouTube URL"

	case errors.Is(err, jobs.ErrNotFound):
		return "Job not found"
	case errors.Is(err, youtube.ErrVideoNotFound):
		return "Video not found or unavailable"
	case errors.Is(err, generation.ErrUnknownProvider):
		return "Unknown LLM provider"

	case errors.Is(err, jobs.ErrInvalidState):
		return "Job cannot be started in its current state"
	case errors.Is(err, service.ErrNotActive):
		return "Job is not running"
	case errors.Is(err, service.ErrNotRetryable):
		return "Only failed or cancelled jobs can be retried"
	case errors.Is(err, service.ErrRetryLimitReached):
		return "Retry limit reached for this job"
	case errors.Is(err, service.ErrOutputNotReady):
		return "Job output is not available yet"

	case errors.Is(err, jobs.ErrCapacityExceeded):
		return "Maximum concurrent jobs reached, try again later"
	case errors.Is(err, jobs.ErrShuttingDown):
		return "Server is shutting down"
	case errors.Is(err, youtube.ErrTransient):
		return "YouTube is temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator output into a short message that
// names the failing field only.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fieldName(fe), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// fieldName prefers the JSON name of the field.
func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "SourceURL", "VideoURL":
		return "video_url"
	case "LanguageCode":
		return "language_code"
	case "Provider":
		return "llm_provider"
	case "Model":
		return "llm_model"
	case "Priority":
		return "priority"
	default:
		return fe.Field()
	}
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "must be a URL"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the response for err. defaultMsg replaces the
// generic message for otherwise unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, ErrorCode(err), err)
}
