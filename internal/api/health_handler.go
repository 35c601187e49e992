package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/blogtube-api/internal/api/shared"
	"github.com/phrazzld/blogtube-api/internal/cache"
	"github.com/phrazzld/blogtube-api/internal/notify"
)

const readinessTimeout = 2 * time.Second

// Pinger checks the database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Admission reports the job manager's load.
type Admission interface {
	ActiveCount() int
	Capacity() int
	CanAdmit() bool
}

// HubStats reports observer connections.
type HubStats interface {
	Stats() notify.Stats
}

// CacheStats reports cache contents.
type CacheStats interface {
	Stats() cache.Stats
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// ReadinessResponse is the body of GET /health/ready.
type ReadinessResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Database   string            `json:"database"`
	ActiveJobs int               `json:"active_jobs"`
	Capacity   int               `json:"max_concurrent_jobs"`
	CanAccept  bool              `json:"can_accept_jobs"`
	WebSockets notify.Stats      `json:"websocket_stats"`
	Cache      cache.Stats       `json:"cache_stats"`
	Checks     map[string]string `json:"checks,omitempty"`
}

// HealthHandler serves the health endpoints. db may be nil when jobs are
// kept in memory.
type HealthHandler struct {
	db        Pinger
	admission Admission
	hub       HubStats
	cache     CacheStats
	version   string
	started   time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger, admission Admission, hub HubStats, c CacheStats, version string, logger *slog.Logger) *HealthHandler {
	if admission == nil || hub == nil || c == nil {
		panic("health handler dependencies cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil for HealthHandler")
	}
	return &HealthHandler{
		db:        db,
		admission: admission,
		hub:       hub,
		cache:     c,
		version:   version,
		started:   time.Now(),
		logger:    logger.With(slog.String("component", "health_handler")),
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready handles GET /health/ready. It answers 503 when the database is
// unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC(),
		Database:   "not_configured",
		ActiveJobs: h.admission.ActiveCount(),
		Capacity:   h.admission.Capacity(),
		CanAccept:  h.admission.CanAdmit(),
		WebSockets: h.hub.Stats(),
		Cache:      h.cache.Stats(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", "error", err)
			resp.Status = "not_ready"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	shared.RespondWithJSON(w, r, status, resp)
}
