package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/store"
)

// JobStore keeps jobs and their progress history in maps. Stored and
// returned jobs are copies, so callers never share memory with the store.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]*domain.Job
	progress map[uuid.UUID][]domain.ProgressEntry

	// SaveHook, when set, runs before every Save and may veto it.
	SaveHook func(job *domain.Job) error
}

// NewJobStore creates an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:     make(map[uuid.UUID]*domain.Job),
		progress: make(map[uuid.UUID][]domain.ProgressEntry),
	}
}

var _ store.JobStore = (*JobStore)(nil)

// Save implements store.JobStore.
func (s *JobStore) Save(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return store.NewStoreError("job", "save", "validation failed", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveHook != nil {
		if err := s.SaveHook(job); err != nil {
			return err
		}
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// GetByID implements store.JobStore.
func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return job.Clone(), nil
}

// FindByStatus implements store.JobStore.
func (s *JobStore) FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// List implements store.JobStore.
func (s *JobStore) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.Normalize()

	s.mu.RLock()
	matched := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Provider != "" && job.Provider != filter.Provider {
			continue
		}
		matched = append(matched, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	if filter.Offset >= len(matched) {
		return []*domain.Job{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

// CountByStatus implements store.JobStore.
func (s *JobStore) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.JobStatus]int)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// AppendProgress implements store.JobStore.
func (s *JobStore) AppendProgress(ctx context.Context, entry domain.ProgressEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[entry.JobID]; !ok {
		return store.ErrJobNotFound
	}
	s.progress[entry.JobID] = append(s.progress[entry.JobID], entry)
	return nil
}

// ListProgress implements store.JobStore.
func (s *JobStore) ListProgress(ctx context.Context, jobID uuid.UUID) ([]domain.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.progress[jobID]
	out := make([]domain.ProgressEntry, len(entries))
	copy(out, entries)
	return out, nil
}
