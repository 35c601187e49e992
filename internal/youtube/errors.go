package youtube

import "errors"

var (
	// ErrInvalidURL indicates the input is not a recognizable YouTube video URL.
	ErrInvalidURL = errors.New("invalid YouTube URL")

	// ErrVideoNotFound indicates the video does not exist or is not public.
	ErrVideoNotFound = errors.New("video not found or unavailable")

	// ErrTranscriptUnavailable indicates the video has no usable captions.
	ErrTranscriptUnavailable = errors.New("no transcript available for this video")

	// ErrTransient indicates a network or upstream failure that may succeed
	// on a later attempt.
	ErrTransient = errors.New("transient YouTube error")
)
