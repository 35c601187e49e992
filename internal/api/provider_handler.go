package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/service"
)

// ProviderService describes the text-generation providers.
type ProviderService interface {
	List() []generation.ProviderInfo
	Models(name string) (*service.ProviderModels, error)
	Health(ctx context.Context, name string) (generation.Health, error)
}

// ProviderHandler serves /api/providers.
type ProviderHandler struct {
	providers ProviderService
	logger    *slog.Logger
}

// NewProviderHandler creates a ProviderHandler.
func NewProviderHandler(providers ProviderService, logger *slog.Logger) *ProviderHandler {
	if providers == nil {
		panic("provider service cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for ProviderHandler")
	}
	return &ProviderHandler{providers: providers, logger: logger.With(slog.String("component", "provider_handler"))}
}

// ListProviders handles GET /api/providers.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ProviderListResponse{Providers: h.providers.List()})
}

// GetModels handles GET /api/providers/{name}/models.
func (h *ProviderHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.providers.Models(chi.URLParam(r, "name"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list provider models")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, models)
}

// GetHealth handles GET /api/providers/{name}/health. An unavailable
// provider is still a 200; the body says it is down.
func (h *ProviderHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.providers.Health(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check provider health")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, health)
}
