package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/platform/logger"
	"github.com/phrazzld/blogtube-api/internal/service"
	"github.com/phrazzld/blogtube-api/internal/store"
)

// JobService is the job use-case surface the handlers call.
type JobService interface {
	Submit(ctx context.Context, req jobs.CreateRequest) (*domain.Job, error)
	Start(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error)
	Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error)
	Output(ctx context.Context, id uuid.UUID) (*service.Output, error)
	Stats(ctx context.Context) (*service.JobStats, error)
}

// JobHandler serves /api/jobs.
type JobHandler struct {
	jobs   JobService
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobService, logger *slog.Logger) *JobHandler {
	if jobs == nil {
		panic("job service cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for JobHandler")
	}
	return &JobHandler{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "job_handler")),
	}
}

// SubmitJob handles POST /api/jobs. It answers 202 with the running job,
// or 429 with the pending job when no slot is free.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobs.Submit(r.Context(), jobs.CreateRequest{
		SourceURL:    req.VideoURL,
		LanguageCode: req.LanguageCode,
		Provider:     req.Provider,
		Model:        req.Model,
		Priority:     req.Priority,
	})
	if errors.Is(err, jobs.ErrCapacityExceeded) && job != nil {
		log.Warn("job queued at capacity", slog.String("job_id", job.ID.String()))
		shared.RespondWithJSON(w, r, http.StatusTooManyRequests, CapacityResponse{
			Error:   GetSafeErrorMessage(err),
			Code:    CodeCapacityExceeded,
			JobID:   job.ID,
			Job:     job,
			TraceID: shared.GetTraceID(r.Context()),
		})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit job")
		return
	}

	log.Info("job submitted",
		slog.String("job_id", job.ID.String()),
		slog.String("provider", job.Provider))
	shared.RespondWithJSON(w, r, http.StatusAccepted, job)
}

// StartJob handles POST /api/jobs/{id}/start.
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Start(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start job")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, job)
}

// RetryJob handles POST /api/jobs/{id}/retry. The retry is a new job.
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Retry(r.Context(), id)
	if errors.Is(err, jobs.ErrCapacityExceeded) && job != nil {
		shared.RespondWithJSON(w, r, http.StatusTooManyRequests, CapacityResponse{
			Error:   GetSafeErrorMessage(err),
			Code:    CodeCapacityExceeded,
			JobID:   job.ID,
			Job:     job,
			TraceID: shared.GetTraceID(r.Context()),
		})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retry job")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	list, err := h.jobs.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*domain.Job{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, JobListResponse{
		Jobs:   list,
		Count:  len(list),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get job")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}

// GetProgress handles GET /api/jobs/{id}/progress.
func (h *JobHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.jobs.Progress(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get job progress")
		return
	}
	if entries == nil {
		entries = []domain.ProgressEntry{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{JobID: id, Progress: entries})
}

// GetOutput handles GET /api/jobs/{id}/output and serves the post as a
// Markdown download.
func (h *JobHandler) GetOutput(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	out, err := h.jobs.Output(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read job output")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out.Content)); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("failed to write output", "error", err)
	}
}

// CancelJob handles DELETE /api/jobs/{id}.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.jobs.Cancel(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to cancel job")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("job cancelled", slog.String("job_id", id.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{JobID: id, Message: "Job cancelled"})
}

// GetStats handles GET /api/jobs/stats.
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get job statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

func (h *JobHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("invalid job id in path", "error", err)
		HandleAPIError(w, r, err, "")
		return uuid.Nil, false
	}
	return id, true
}
