package pipeline

import (
	"context"
	"errors"

	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/youtube"
)

// fail wraps err with its step and error code.
func fail(step domain.JobStep, err error) error {
	return domain.NewStepError(step, Classify(step, err), err)
}

// Classify maps a step failure onto the error code recorded on the job.
func Classify(step domain.JobStep, err error) domain.ErrorCode {
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		return domain.ErrorCodeInvalidURL
	case errors.Is(err, youtube.ErrVideoNotFound):
		return domain.ErrorCodeVideoNotFound
	case errors.Is(err, youtube.ErrTranscriptUnavailable),
		errors.Is(err, generation.ErrEmptyTranscript):
		return domain.ErrorCodeTranscriptUnavailable
	case errors.Is(err, youtube.ErrTransient):
		return domain.ErrorCodeNetworkError
	case errors.Is(err, generation.ErrQuotaExceeded):
		return domain.ErrorCodeQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrorCodeProcessingTimeout
	}

	if step == domain.StepGenerateContent {
		return domain.ErrorCodeLLMAPIError
	}
	return domain.ErrorCodeInternal
}
