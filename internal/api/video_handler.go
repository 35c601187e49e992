package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/service"
)

// VideoService previews a video before a job is submitted.
type VideoService interface {
	Details(ctx context.Context, rawURL string) (*service.VideoDetails, error)
}

// VideoHandler serves /api/videos.
type VideoHandler struct {
	videos VideoService
	logger *slog.Logger
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(videos VideoService, logger *slog.Logger) *VideoHandler {
	if videos == nil {
		panic("video service cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for VideoHandler")
	}
	return &VideoHandler{videos: videos, logger: logger.With(slog.String("component", "video_handler"))}
}

// GetInfo handles GET /api/videos/info?url=.
func (h *VideoHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		HandleAPIError(w, r, fmt.Errorf("%w: url is required", jobs.ErrInvalidRequest), "")
		return
	}

	details, err := h.videos.Details(r.Context(), rawURL)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get video information")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, details)
}
