package service

import (
	"context"

	"github.com/phrazzld/blogtube-api/internal/generation"
)

// ProviderCatalog is the read side of generation.Registry.
type ProviderCatalog interface {
	Providers() []generation.ProviderInfo
	Info(name string) (generation.ProviderInfo, error)
	Models(name string) ([]string, error)
	Health(ctx context.Context, name string) (generation.Health, error)
}

// ProviderModels lists the models of one provider.
type ProviderModels struct {
	Provider     string   `json:"provider"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
}

// ProviderService describes the configured text-generation providers.
type ProviderService struct {
	catalog ProviderCatalog
}

// NewProviderService creates a ProviderService. Panics if catalog is nil.
func NewProviderService(catalog ProviderCatalog) *ProviderService {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	return &ProviderService{catalog: catalog}
}

// List returns every provider.
func (s *ProviderService) List() []generation.ProviderInfo {
	return s.catalog.Providers()
}

// Models returns the models of provider name.
func (s *ProviderService) Models(name string) (*ProviderModels, error) {
	info, err := s.catalog.Info(name)
	if err != nil {
		return nil, newServiceError("provider", "models", "failed to describe provider", err)
	}
	models, err := s.catalog.Models(name)
	if err != nil {
		return nil, newServiceError("provider", "models", "failed to list models", err)
	}
	return &ProviderModels{Provider: info.Name, Models: models, DefaultModel: info.DefaultModel}, nil
}

// Health checks provider name, using a cached result when one is fresh.
func (s *ProviderService) Health(ctx context.Context, name string) (generation.Health, error) {
	h, err := s.catalog.Health(ctx, name)
	if err != nil {
		return generation.Health{}, newServiceError("provider", "health", "failed to check provider", err)
	}
	return h, nil
}
