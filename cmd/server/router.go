package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/blogtube-api/internal/api"
	"github.com/phrazzld/blogtube-api/internal/api/middleware"
	"golang.org/x/time/rate"
)

// setupRouter builds the HTTP routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewTraceMiddleware(app.logger))
	r.Use(chimiddleware.Recoverer)

	var pinger api.Pinger
	if app.db != nil {
		pinger = dbPinger{db: app.db}
	}

	jobHandler := api.NewJobHandler(app.jobService, app.logger)
	videoHandler := api.NewVideoHandler(app.videoService, app.logger)
	providerHandler := api.NewProviderHandler(app.providerService, app.logger)
	healthHandler := api.NewHealthHandler(pinger, app.manager, app.hub, app.cache, version, app.logger)
	wsHandler := api.NewWSHandler(app.hub, app.manager, app.manager, app.config.Notify.HeartbeatInterval, app.logger)

	// Submissions and retries start real work, so they share one limiter.
	createLimit := middleware.RateLimit(rate.NewLimiter(
		rate.Limit(app.config.API.CreateRatePerSecond),
		app.config.API.CreateBurst,
	))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.With(createLimit).Post("/", jobHandler.SubmitJob)
			r.Get("/", jobHandler.ListJobs)
			r.Get("/stats", jobHandler.GetStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", jobHandler.GetJob)
				r.Delete("/", jobHandler.CancelJob)
				r.Post("/start", jobHandler.StartJob)
				r.With(createLimit).Post("/retry", jobHandler.RetryJob)
				r.Get("/progress", jobHandler.GetProgress)
				r.Get("/output", jobHandler.GetOutput)
				r.Get("/ws", wsHandler.ObserveJob)
			})
		})

		r.Get("/videos/info", videoHandler.GetInfo)

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providerHandler.ListProviders)
			r.Get("/{name}/models", providerHandler.GetModels)
			r.Get("/{name}/health", providerHandler.GetHealth)
		})

		r.Get("/ws/system", wsHandler.ObserveSystem)
	})

	return r
}
