package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/store"
	"github.com/phrazzld/blogtube-api/internal/youtube"
	"github.com/stretchr/testify/mock"
)

// MockJobManager mocks the JobManager interface
type MockJobManager struct {
	mock.Mock
}

func (m *MockJobManager) Create(ctx context.Context, req jobs.CreateRequest) (uuid.UUID, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockJobManager) Start(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockJobManager) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobManager) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobManager) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobManager) Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProgressEntry), args.Error(1)
}

func (m *MockJobManager) ActiveCount() int {
	return m.Called().Int(0)
}

func (m *MockJobManager) Capacity() int {
	return m.Called().Int(0)
}

// MockArtifactReader mocks the ArtifactReader interface
type MockArtifactReader struct {
	mock.Mock
}

func (m *MockArtifactReader) Read(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// MockStatusCounter mocks the StatusCounter interface
type MockStatusCounter struct {
	mock.Mock
}

func (m *MockStatusCounter) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.JobStatus]int), args.Error(1)
}

// MockVideoLookup mocks the VideoLookup interface
type MockVideoLookup struct {
	mock.Mock
}

func (m *MockVideoLookup) Resolve(ctx context.Context, rawURL string) (youtube.VideoInfo, error) {
	args := m.Called(ctx, rawURL)
	return args.Get(0).(youtube.VideoInfo), args.Error(1)
}

func (m *MockVideoLookup) ListVariants(ctx context.Context, videoID string) ([]youtube.Variant, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]youtube.Variant), args.Error(1)
}

// MockProviderCatalog mocks the ProviderCatalog interface
type MockProviderCatalog struct {
	mock.Mock
}

func (m *MockProviderCatalog) Providers() []generation.ProviderInfo {
	return m.Called().Get(0).([]generation.ProviderInfo)
}

func (m *MockProviderCatalog) Info(name string) (generation.ProviderInfo, error) {
	args := m.Called(name)
	return args.Get(0).(generation.ProviderInfo), args.Error(1)
}

func (m *MockProviderCatalog) Models(name string) ([]string, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProviderCatalog) Health(ctx context.Context, name string) (generation.Health, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(generation.Health), args.Error(1)
}
