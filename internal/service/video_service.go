package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/blogtube-api/internal/youtube"
)

// VideoLookup resolves video metadata and transcript languages.
type VideoLookup interface {
	Resolve(ctx context.Context, rawURL string) (youtube.VideoInfo, error)
	ListVariants(ctx context.Context, videoID string) ([]youtube.Variant, error)
}

// VideoDetails is what a client sees before submitting a job.
type VideoDetails struct {
	youtube.VideoInfo
	Languages            []youtube.Variant `json:"available_languages"`
	TranscriptsAvailable bool              `json:"transcripts_available"`
}

// VideoService previews videos.
type VideoService struct {
	lookup VideoLookup
	logger *slog.Logger
}

// NewVideoService creates a VideoService. Panics if lookup is nil.
func NewVideoService(lookup VideoLookup, logger *slog.Logger) *VideoService {
	if lookup == nil {
		panic("lookup cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoService{lookup: lookup, logger: logger.With("component", "video_service")}
}

// Details returns the metadata and caption languages of the video at
// rawURL. A transient metadata failure falls back to a placeholder title;
// a video without captions is reported with no languages rather than as an
// error.
func (s *VideoService) Details(ctx context.Context, rawURL string) (*VideoDetails, error) {
	videoID, err := youtube.ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	info, err := s.lookup.Resolve(ctx, rawURL)
	if err != nil {
		if !youtube.IsTransient(err) {
			return nil, newServiceError("video", "details", "failed to resolve video", err)
		}
		s.logger.Warn("video metadata unavailable, using fallback", "video_id", videoID, "error", err)
		info = youtube.FallbackInfo(videoID)
	}

	details := &VideoDetails{VideoInfo: info, Languages: []youtube.Variant{}}
	variants, err := s.lookup.ListVariants(ctx, videoID)
	switch {
	case err == nil:
		details.Languages = variants
		details.TranscriptsAvailable = len(variants) > 0
	case errors.Is(err, youtube.ErrTranscriptUnavailable):
	default:
		return nil, newServiceError("video", "details", "failed to list transcript languages", err)
	}
	return details, nil
}
