package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/blogtube-api/internal/artifact"
	"github.com/phrazzld/blogtube-api/internal/cache"
	"github.com/phrazzld/blogtube-api/internal/config"
	"github.com/phrazzld/blogtube-api/internal/format"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/jobs"
	"github.com/phrazzld/blogtube-api/internal/notify"
	"github.com/phrazzld/blogtube-api/internal/pipeline"
	"github.com/phrazzld/blogtube-api/internal/platform/anthropic"
	"github.com/phrazzld/blogtube-api/internal/platform/gemini"
	"github.com/phrazzld/blogtube-api/internal/platform/memory"
	"github.com/phrazzld/blogtube-api/internal/platform/openai"
	"github.com/phrazzld/blogtube-api/internal/platform/postgres"
	"github.com/phrazzld/blogtube-api/internal/service"
	"github.com/phrazzld/blogtube-api/internal/store"
	"github.com/phrazzld/blogtube-api/internal/youtube"
	"github.com/robfig/cron/v3"
)

// application holds every long-lived component of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cache     *cache.Cache
	hub       *notify.Hub
	registry  *generation.Registry
	youtube   *youtube.Client
	artifacts *artifact.LocalStorage
	jobStore  store.JobStore
	manager   *jobs.Manager
	processor *pipeline.Processor

	jobService      *service.JobService
	videoService    *service.VideoService
	providerService *service.ProviderService

	scheduler *cron.Cron
}

// newApplication wires the components together. db may be nil, in which
// case jobs are kept in memory.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.cache = cache.New(cache.Config{
		CategoryTTL: map[string]time.Duration{
			cache.CategoryMetadata:        cfg.Cache.MetadataTTL,
			cache.CategoryContentVariants: cfg.Cache.ContentVariantsTTL,
			cache.CategoryProviderHealth:  cfg.Cache.ProviderHealthTTL,
		},
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	app.hub = notify.NewHub(logger)

	app.registry = generation.NewRegistry(app.cache, logger)
	if err := registerProviders(ctx, app.registry, cfg.LLM, logger); err != nil {
		return nil, err
	}

	app.youtube = youtube.NewClient(youtube.Config{
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Burst:             cfg.YouTube.Burst,
		HTTPTimeout:       cfg.YouTube.HTTPTimeout,
	}, app.cache, logger)
	app.artifacts = artifact.NewLocalStorage(cfg.Output.Dir, cfg.Output.TranscriptsDir)

	if db != nil {
		app.jobStore = postgres.NewPostgresJobStore(db, logger)
	} else {
		app.jobStore = memory.NewJobStore()
	}

	app.manager = jobs.NewManager(app.jobStore, app.hub, app.registry, jobs.Config{
		MaxConcurrent:   cfg.Jobs.MaxConcurrent,
		DefaultLanguage: cfg.YouTube.DefaultLanguage,
	}, logger)

	processor, err := pipeline.NewProcessor(pipeline.Deps{
		Tracker:    app.manager,
		Resolver:   app.youtube,
		Lister:     app.youtube,
		Fetcher:    app.youtube,
		Generators: app.registry,
		Formatter:  format.Formatter{},
		Artifacts:  app.artifacts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	app.processor = processor
	app.manager.SetRunner(processor)

	app.jobService = service.NewJobService(app.manager, app.artifacts, app.jobStore, logger)
	app.videoService = service.NewVideoService(app.youtube, logger)
	app.providerService = service.NewProviderService(app.registry)

	app.scheduler, err = scheduleMaintenance(app.maintenanceJobs(), logger)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// registerProviders registers the built-in providers. A provider without
// an API key is still listed but cannot accept jobs.
func registerProviders(ctx context.Context, registry *generation.Registry, cfg config.LLMConfig, logger *slog.Logger) error {
	retry := generation.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}

	for _, p := range generation.StandardProviders(cfg.GeminiModel, cfg.OpenAIModel, cfg.AnthropicModel) {
		gen, err := newGenerator(ctx, p.Name, cfg, retry, logger)
		if err != nil {
			return fmt.Errorf("failed to configure provider %s: %w", p.Name, err)
		}
		p.Generator = gen
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("failed to register provider %s: %w", p.Name, err)
		}
	}

	if _, err := registry.Generator(cfg.DefaultProvider); err != nil {
		logger.Warn("default LLM provider is not configured", "provider", cfg.DefaultProvider)
	}
	return nil
}

// newGenerator returns a nil interface, not a typed nil, when the provider
// has no key.
func newGenerator(ctx context.Context, name string, cfg config.LLMConfig, retry generation.RetryPolicy, logger *slog.Logger) (generation.Generator, error) {
	switch name {
	case generation.ProviderGoogle:
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:       cfg.GeminiAPIKey,
			DefaultModel: cfg.GeminiModel,
			Retry:        retry,
		}, logger)
	case generation.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		return openai.NewClient(openai.Config{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			DefaultModel: cfg.OpenAIModel,
			Timeout:      cfg.RequestTimeout,
			Retry:        retry,
		}, logger)
	case generation.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, nil
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:       cfg.AnthropicAPIKey,
			BaseURL:      cfg.AnthropicBaseURL,
			DefaultModel: cfg.AnthropicModel,
			Timeout:      cfg.RequestTimeout,
			Retry:        retry,
		}, logger)
	}
	return nil, nil
}

// maintenanceJobs lists the periodic sweeps.
func (app *application) maintenanceJobs() []maintenanceJob {
	return []maintenanceJob{
		{
			name:     "cache_sweep",
			schedule: app.config.Cache.SweepSchedule,
			run: func() int {
				return app.cache.SweepExpired()
			},
		},
		{
			name:     "stale_observer_sweep",
			schedule: app.config.Notify.SweepSchedule,
			run: func() int {
				return app.hub.SweepStale(app.config.Notify.StaleTimeout)
			},
		},
		{
			name:     "job_cleanup",
			schedule: app.config.Jobs.CleanupSchedule,
			run: func() int {
				return app.manager.Cleanup(app.config.Jobs.Retention)
			},
		},
	}
}

// shutdown stops the background work in dependency order: the scheduler,
// running jobs, observer connections, then the database.
func (app *application) shutdown(ctx context.Context) error {
	var firstErr error

	stopped := app.scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		app.logger.Warn("maintenance jobs still running at shutdown")
	}

	if err := app.manager.Shutdown(ctx); err != nil {
		app.logger.Error("job manager shutdown failed", "error", err)
		firstErr = err
	}

	if n := app.hub.CloseAll(); n > 0 {
		app.logger.Info("closed observer connections", "count", n)
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
