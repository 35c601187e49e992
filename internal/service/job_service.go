package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/format"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/store"
)

// JobManager is the part of jobs.Manager the service builds on.
type JobManager interface {
	Create(ctx context.Context, req jobs.CreateRequest) (uuid.UUID, error)
	Start(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error)
	Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error)
	ActiveCount() int
	Capacity() int
}

// ArtifactReader reads generated files back.
type ArtifactReader interface {
	Read(ctx context.Context, path string) (string, error)
}

// StatusCounter counts persisted jobs per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}

// Output is a finished blog post ready for download.
type Output struct {
	JobID    uuid.UUID
	Filename string
	Content  string
	Summary  string
}

// JobStats summarises the job table.
type JobStats struct {
	ByStatus   map[domain.JobStatus]int `json:"by_status"`
	Total      int                      `json:"total"`
	Active     int                      `json:"active"`
	Capacity   int                      `json:"capacity"`
	ObservedAt time.Time                `json:"observed_at"`
}

// JobService implements the job use cases exposed over HTTP.
type JobService struct {
	manager   JobManager
	artifacts ArtifactReader
	counter   StatusCounter
	logger    *slog.Logger
}

// NewJobService creates a JobService. Panics if a dependency is nil.
func NewJobService(manager JobManager, artifacts ArtifactReader, counter StatusCounter, logger *slog.Logger) *JobService {
	if manager == nil {
		panic("manager cannot be nil")
	}
	if artifacts == nil {
		panic("artifacts cannot be nil")
	}
	if counter == nil {
		panic("counter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		manager:   manager,
		artifacts: artifacts,
		counter:   counter,
		logger:    logger.With("component", "job_service"),
	}
}

// Submit creates a job and tries to start it right away.
//
// When the concurrency limit is reached the created job is returned together
// with jobs.ErrCapacityExceeded. The job stays pending and can be started
// later with Start.
func (s *JobService) Submit(ctx context.Context, req jobs.CreateRequest) (*domain.Job, error) {
	id, err := s.manager.Create(ctx, req)
	if err != nil {
		return nil, NewJobServiceError("submit", "failed to create job", err)
	}

	startErr := s.manager.Start(ctx, id)
	job, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("submit", "failed to load job", err)
	}

	if startErr != nil {
		if errors.Is(startErr, jobs.ErrCapacityExceeded) {
			s.logger.Warn("job created but not started, capacity reached",
				"job_id", id,
				"capacity", s.manager.Capacity())
			return job, jobs.ErrCapacityExceeded
		}
		return job, NewJobServiceError("submit", "failed to start job", startErr)
	}
	return job, nil
}

// Start starts a pending job.
func (s *JobService) Start(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if err := s.manager.Start(ctx, id); err != nil {
		return nil, NewJobServiceError("start", "failed to start job", err)
	}
	return s.Get(ctx, id)
}

// Retry creates a fresh job for the same video as a failed or cancelled
// one, with its retry count incremented, and tries to start it.
func (s *JobService) Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	prev, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("retry", "failed to load job", err)
	}
	if prev.Status != domain.JobStatusFailed && prev.Status != domain.JobStatusCancelled {
		return nil, fmt.Errorf("%w: job is %s", ErrNotRetryable, prev.Status)
	}
	if prev.RetryCount >= prev.MaxRetries {
		return nil, fmt.Errorf("%w: %d of %d retries used", ErrRetryLimitReached, prev.RetryCount, prev.MaxRetries)
	}

	s.logger.Info("retrying job", "job_id", id, "retry_count", prev.RetryCount+1)
	return s.Submit(ctx, jobs.CreateRequest{
		SourceURL:    prev.SourceURL,
		LanguageCode: prev.LanguageCode,
		Provider:     prev.Provider,
		Model:        prev.Model,
		Priority:     prev.Priority,
		RetryCount:   prev.RetryCount + 1,
	})
}

// Cancel cancels a running job. It returns ErrNotActive when the job exists
// but has no active run.
func (s *JobService) Cancel(ctx context.Context, id uuid.UUID) error {
	if _, err := s.manager.Get(ctx, id); err != nil {
		return NewJobServiceError("cancel", "failed to load job", err)
	}
	cancelled, err := s.manager.Cancel(ctx, id)
	if err != nil {
		return NewJobServiceError("cancel", "failed to cancel job", err)
	}
	if !cancelled {
		return ErrNotActive
	}
	return nil
}

// Get returns a job.
func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("get", "failed to load job", err)
	}
	return job, nil
}

// List returns jobs matching filter, newest first.
func (s *JobService) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	list, err := s.manager.List(ctx, filter)
	if err != nil {
		return nil, NewJobServiceError("list", "failed to list jobs", err)
	}
	return list, nil
}

// Progress returns the step history of a job.
func (s *JobService) Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error) {
	entries, err := s.manager.Progress(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("progress", "failed to load progress", err)
	}
	return entries, nil
}

// Output returns the generated post of a completed job. ErrOutputNotReady
// is returned for jobs that have not completed.
func (s *JobService) Output(ctx context.Context, id uuid.UUID) (*Output, error) {
	job, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, NewJobServiceError("output", "failed to load job", err)
	}
	if job.Status != domain.JobStatusCompleted || job.OutputPath == nil {
		return nil, fmt.Errorf("%w: job is %s", ErrOutputNotReady, job.Status)
	}

	content, err := s.artifacts.Read(ctx, *job.OutputPath)
	if err != nil {
		return nil, NewJobServiceError("output", "failed to read output", err)
	}

	return &Output{
		JobID:    job.ID,
		Filename: format.SafeFilename(job.DisplayTitle(), 0) + ".md",
		Content:  content,
		Summary:  format.Summary(content),
	}, nil
}

// Stats counts persisted jobs per status and reports current admission.
func (s *JobService) Stats(ctx context.Context) (*JobStats, error) {
	counts, err := s.counter.CountByStatus(ctx)
	if err != nil {
		return nil, NewJobServiceError("stats", "failed to count jobs", err)
	}

	stats := &JobStats{
		ByStatus:   make(map[domain.JobStatus]int, len(counts)),
		Active:     s.manager.ActiveCount(),
		Capacity:   s.manager.Capacity(),
		ObservedAt: time.Now().UTC(),
	}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, nil
}
