package generation

import "errors"

// Generation errors. Provider clients wrap one of these so the pipeline can
// map a failure onto a job error code without provider-specific detail.
var (
	ErrGenerationFailed = errors.New("failed to generate blog content")

	// ErrInvalidResponse covers empty or unparseable model output.
	ErrInvalidResponse = errors.New("invalid response from language model")

	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is retried by WithRetry.
	ErrTransientFailure = errors.New("transient error during content generation")

	ErrQuotaExceeded = errors.New("language model quota exceeded")
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrUnknownProvider is returned for names the registry does not know;
	// ErrProviderUnavailable for known providers without credentials.
	ErrUnknownProvider     = errors.New("unknown LLM provider")
	ErrProviderUnavailable = errors.New("LLM provider is not configured")

	ErrEmptyTranscript = errors.New("transcript cannot be empty")
)
