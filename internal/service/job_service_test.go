package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type jobServiceFixture struct {
	manager   *MockJobManager
	artifacts *MockArtifactReader
	counter   *MockStatusCounter
	svc       *JobService
}

func newJobServiceFixture(t *testing.T) *jobServiceFixture {
	t.Helper()
	f := &jobServiceFixture{
		manager:   new(MockJobManager),
		artifacts: new(MockArtifactReader),
		counter:   new(MockStatusCounter),
	}
	f.svc = NewJobService(f.manager, f.artifacts, f.counter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() {
		f.manager.AssertExpectations(t)
		f.artifacts.AssertExpectations(t)
		f.counter.AssertExpectations(t)
	})
	return f
}

func newJob(t *testing.T, status domain.JobStatus) *domain.Job {
	t.Helper()
	job, err := domain.NewJob(testVideoURL, "en", "google", "gemini-2.0-flash", 0)
	require.NoError(t, err)
	job.Status = status
	return job
}

func TestNewJobService_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { NewJobService(nil, new(MockArtifactReader), new(MockStatusCounter), nil) })
	assert.Panics(t, func() { NewJobService(new(MockJobManager), nil, new(MockStatusCounter), nil) })
	assert.Panics(t, func() { NewJobService(new(MockJobManager), new(MockArtifactReader), nil, nil) })
}

func TestJobService_Submit(t *testing.T) {
	ctx := context.Background()
	req := jobs.CreateRequest{SourceURL: testVideoURL, Provider: "google"}

	t.Run("creates and starts", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusValidating)
		f.manager.On("Create", ctx, req).Return(job.ID, nil)
		f.manager.On("Start", ctx, job.ID).Return(nil)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)

		got, err := f.svc.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("returns pending job at capacity", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusPending)
		f.manager.On("Create", ctx, req).Return(job.ID, nil)
		f.manager.On("Start", ctx, job.ID).Return(jobs.ErrCapacityExceeded)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)
		f.manager.On("Capacity").Return(5)

		got, err := f.svc.Submit(ctx, req)
		assert.ErrorIs(t, err, jobs.ErrCapacityExceeded)
		require.NotNil(t, got)
		assert.Equal(t, domain.JobStatusPending, got.Status)
	})

	t.Run("invalid request passes through", func(t *testing.T) {
		f := newJobServiceFixture(t)
		invalid := errors.Join(jobs.ErrInvalidRequest, errors.New("video_url required"))
		f.manager.On("Create", ctx, mock.Anything).Return(uuid.Nil, invalid)

		_, err := f.svc.Submit(ctx, jobs.CreateRequest{})
		assert.ErrorIs(t, err, jobs.ErrInvalidRequest)
		var svcErr *ServiceError
		assert.False(t, errors.As(err, &svcErr))
	})
}

func TestJobService_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("submits a new job with incremented retry count", func(t *testing.T) {
		f := newJobServiceFixture(t)
		prev := newJob(t, domain.JobStatusFailed)
		prev.RetryCount = 1
		next := newJob(t, domain.JobStatusValidating)

		f.manager.On("Get", ctx, prev.ID).Return(prev, nil)
		f.manager.On("Create", ctx, mock.MatchedBy(func(req jobs.CreateRequest) bool {
			return req.RetryCount == 2 && req.SourceURL == prev.SourceURL && req.Provider == prev.Provider
		})).Return(next.ID, nil)
		f.manager.On("Start", ctx, next.ID).Return(nil)
		f.manager.On("Get", ctx, next.ID).Return(next, nil)

		got, err := f.svc.Retry(ctx, prev.ID)
		require.NoError(t, err)
		assert.Equal(t, next.ID, got.ID)
	})

	t.Run("rejects running job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusGenerating)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)

		_, err := f.svc.Retry(ctx, job.ID)
		assert.ErrorIs(t, err, ErrNotRetryable)
	})

	t.Run("rejects exhausted job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusCancelled)
		job.RetryCount = job.MaxRetries
		f.manager.On("Get", ctx, job.ID).Return(job, nil)

		_, err := f.svc.Retry(ctx, job.ID)
		assert.ErrorIs(t, err, ErrRetryLimitReached)
	})
}

func TestJobService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		id := uuid.New()
		f.manager.On("Get", ctx, id).Return(nil, jobs.ErrNotFound)

		assert.ErrorIs(t, f.svc.Cancel(ctx, id), jobs.ErrNotFound)
	})

	t.Run("idle job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusCompleted)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)
		f.manager.On("Cancel", ctx, job.ID).Return(false, nil)

		assert.ErrorIs(t, f.svc.Cancel(ctx, job.ID), ErrNotActive)
	})

	t.Run("running job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusGenerating)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)
		f.manager.On("Cancel", ctx, job.ID).Return(true, nil)

		assert.NoError(t, f.svc.Cancel(ctx, job.ID))
	})
}

func TestJobService_Output(t *testing.T) {
	ctx := context.Background()

	t.Run("completed job", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusCompleted)
		title := "Go: Tips & Tricks!"
		path := "/out/post.md"
		job.Title = &title
		job.OutputPath = &path
		f.manager.On("Get", ctx, job.ID).Return(job, nil)
		f.artifacts.On("Read", ctx, path).Return("---\ntitle: x\n---\n\n# Heading\n\nBody text.", nil)

		out, err := f.svc.Output(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "go_tips_tricks.md", out.Filename)
		assert.Equal(t, "Body text.", out.Summary)
	})

	t.Run("not completed", func(t *testing.T) {
		f := newJobServiceFixture(t)
		job := newJob(t, domain.JobStatusGenerating)
		f.manager.On("Get", ctx, job.ID).Return(job, nil)

		_, err := f.svc.Output(ctx, job.ID)
		assert.ErrorIs(t, err, ErrOutputNotReady)
	})
}

func TestJobService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newJobServiceFixture(t)
	f.counter.On("CountByStatus", ctx).Return(map[domain.JobStatus]int{
		domain.JobStatusCompleted: 3,
		domain.JobStatusFailed:    1,
		domain.JobStatusPending:   2,
	}, nil)
	f.manager.On("ActiveCount").Return(1)
	f.manager.On("Capacity").Return(5)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.ByStatus[domain.JobStatusCompleted])
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 5, stats.Capacity)
}

func TestJobService_ListWrapsStoreFailures(t *testing.T) {
	ctx := context.Background()
	f := newJobServiceFixture(t)
	cause := errors.New("connection refused")
	f.manager.On("List", ctx, store.ListFilter{Limit: 10}).Return(nil, cause)

	_, err := f.svc.List(ctx, store.ListFilter{Limit: 10})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "list", svcErr.Operation)
}
