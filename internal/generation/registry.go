package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/blogtube-api/internal/cache"
)

// Supported provider names.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const healthCheckTimeout = 10 * time.Second

// Provider describes one text-generation backend. Generator is nil when the
// provider has no credentials configured.
type Provider struct {
	Name         string
	DisplayName  string
	Description  string
	Models       []string
	DefaultModel string
	Features     []string
	PricingTier  string
	Generator    Generator
}

// ProviderInfo is the client-facing description of a provider.
type ProviderInfo struct {
	Name            string     `json:"name"`
	DisplayName     string     `json:"display_name"`
	Description     string     `json:"description"`
	Models          []string   `json:"models"`
	DefaultModel    string     `json:"default_model"`
	Features        []string   `json:"features"`
	PricingTier     string     `json:"pricing_tier"`
	Available       bool       `json:"is_available"`
	LastHealthCheck *time.Time `json:"last_health_check,omitempty"`
}

// Health is the result of a provider health check.
type Health struct {
	Provider       string    `json:"provider"`
	Available      bool      `json:"is_available"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	LastCheck      time.Time `json:"last_check"`
	Error          string    `json:"error_message,omitempty"`
}

// Registry holds the known providers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string

	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates an empty Registry that caches health results in c.
func NewRegistry(c *cache.Cache, logger *slog.Logger) *Registry {
	if c == nil {
		panic("cache cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers: make(map[string]Provider),
		cache:     c,
		logger:    logger.With("component", "provider_registry"),
		now:       time.Now,
	}
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return fmt.Errorf("%w: provider name cannot be empty", ErrInvalidConfig)
	}
	if p.DefaultModel == "" {
		return fmt.Errorf("%w: provider %s has no default model", ErrInvalidConfig, p.Name)
	}
	if !containsModel(p.Models, p.DefaultModel) {
		p.Models = append([]string{p.DefaultModel}, p.Models...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.providers[p.Name] = p
	r.cache.Delete(healthKey(p.Name))

	r.logger.Info("registered LLM provider",
		"provider", p.Name,
		"default_model", p.DefaultModel,
		"configured", p.Generator != nil)
	return nil
}

func containsModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}

func healthKey(name string) string { return "provider_health:" + name }

func (r *Registry) lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// DefaultModel returns the default model of a configured provider. It
// reports false for unknown providers and for providers without credentials.
func (r *Registry) DefaultModel(name string) (string, bool) {
	p, ok := r.lookup(name)
	if !ok || p.Generator == nil {
		return "", false
	}
	return p.DefaultModel, true
}

// Generator returns the generator of a provider.
func (r *Registry) Generator(name string) (Generator, error) {
	p, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if p.Generator == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
	}
	return p.Generator, nil
}

// Models returns the models offered by a provider.
func (r *Registry) Models(name string) ([]string, error) {
	p, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return append([]string(nil), p.Models...), nil
}

// Providers describes every registered provider in registration order.
// Availability reflects the last cached health check when there is one.
func (r *Registry) Providers() []ProviderInfo {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		providers = append(providers, r.providers[name])
	}
	r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		info := ProviderInfo{
			Name:         p.Name,
			DisplayName:  p.DisplayName,
			Description:  p.Description,
			Models:       append([]string(nil), p.Models...),
			DefaultModel: p.DefaultModel,
			Features:     append([]string(nil), p.Features...),
			PricingTier:  p.PricingTier,
			Available:    p.Generator != nil,
		}
		if h, ok := cache.GetAs[Health](r.cache, healthKey(p.Name)); ok {
			checked := h.LastCheck
			info.LastHealthCheck = &checked
			info.Available = info.Available && h.Available
		}
		infos = append(infos, info)
	}
	return infos
}

// Info describes a single provider.
func (r *Registry) Info(name string) (ProviderInfo, error) {
	for _, info := range r.Providers() {
		if info.Name == strings.ToLower(name) {
			return info, nil
		}
	}
	return ProviderInfo{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// Health returns the health of a provider, running a check when no fresh
// result is cached.
func (r *Registry) Health(ctx context.Context, name string) (Health, error) {
	p, ok := r.lookup(name)
	if !ok {
		return Health{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if h, ok := cache.GetAs[Health](r.cache, healthKey(p.Name)); ok {
		return h, nil
	}

	h := r.check(ctx, p)
	r.cache.Set(healthKey(p.Name), h, cache.CategoryProviderHealth)
	return h, nil
}

func (r *Registry) check(ctx context.Context, p Provider) Health {
	start := r.now()
	h := Health{Provider: p.Name, LastCheck: start.UTC()}

	if p.Generator == nil {
		h.Error = ErrProviderUnavailable.Error()
		return h
	}

	checker, ok := p.Generator.(HealthChecker)
	if !ok {
		h.Available = true
		return h
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := checker.Ping(ctx)
	h.ResponseTimeMS = r.now().Sub(start).Milliseconds()
	if err != nil {
		h.Error = describe(err)
		r.logger.Warn("provider health check failed", "provider", p.Name, "error", err)
		return h
	}
	h.Available = true
	return h
}

// describe returns a client-safe description of a provider error.
func describe(err error) string {
	for _, known := range []error{
		ErrInvalidConfig, ErrQuotaExceeded, ErrTransientFailure,
		ErrContentBlocked, ErrInvalidResponse, ErrGenerationFailed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	return ErrGenerationFailed.Error()
}

// StandardProviders returns the descriptors of the built-in providers with
// the given default models. Generators are attached by the caller.
func StandardProviders(googleModel, openAIModel, anthropicModel string) []Provider {
	return []Provider{
		{
			Name:         ProviderGoogle,
			DisplayName:  "Google AI",
			Description:  "Gemini models from Google",
			Models:       []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
			DefaultModel: googleModel,
			Features:     []string{"chat", "completion", "multimodal"},
			PricingTier:  "standard",
		},
		{
			Name:         ProviderOpenAI,
			DisplayName:  "OpenAI",
			Description:  "GPT models from OpenAI",
			Models:       []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"},
			DefaultModel: openAIModel,
			Features:     []string{"chat", "completion", "function_calling"},
			PricingTier:  "premium",
		},
		{
			Name:         ProviderAnthropic,
			DisplayName:  "Anthropic",
			Description:  "Claude models from Anthropic",
			Models:       []string{"claude-3-5-sonnet-latest", "claude-3-5-haiku-latest", "claude-3-opus-latest"},
			DefaultModel: anthropicModel,
			Features:     []string{"chat", "completion", "long_context"},
			PricingTier:  "premium",
		},
	}
}
