package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/service"
	"github.com/phrazzld/blogtube-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockJobService mocks the JobService interface
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) job(args mock.Arguments) (*domain.Job, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobService) Submit(ctx context.Context, req jobs.CreateRequest) (*domain.Job, error) {
	return m.job(m.Called(ctx, req))
}

func (m *MockJobService) Start(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobService) Retry(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobService) Cancel(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockJobService) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobService) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobService) Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProgressEntry), args.Error(1)
}

func (m *MockJobService) Output(ctx context.Context, id uuid.UUID) (*service.Output, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Output), args.Error(1)
}

func (m *MockJobService) Stats(ctx context.Context) (*service.JobStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.JobStats), args.Error(1)
}

// MockVideoService mocks the VideoService interface
type MockVideoService struct {
	mock.Mock
}

func (m *MockVideoService) Details(ctx context.Context, rawURL string) (*service.VideoDetails, error) {
	args := m.Called(ctx, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VideoDetails), args.Error(1)
}

// MockProviderService mocks the ProviderService interface
type MockProviderService struct {
	mock.Mock
}

func (m *MockProviderService) List() []generation.ProviderInfo {
	return m.Called().Get(0).([]generation.ProviderInfo)
}

func (m *MockProviderService) Models(name string) (*service.ProviderModels, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProviderModels), args.Error(1)
}

func (m *MockProviderService) Health(ctx context.Context, name string) (generation.Health, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(generation.Health), args.Error(1)
}

// stubAdmission is a fixed Admission.
type stubAdmission struct {
	active, capacity int
}

func (s stubAdmission) ActiveCount() int { return s.active }
func (s stubAdmission) Capacity() int    { return s.capacity }
func (s stubAdmission) CanAdmit() bool   { return s.active < s.capacity }

// stubPinger returns err from Ping.
type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }
