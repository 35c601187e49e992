package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/generation"
)

// SubmitJobRequest is the payload of POST /api/jobs.
type SubmitJobRequest struct {
	VideoURL     string `json:"video_url"     validate:"required,url,max=2048"`
	LanguageCode string `json:"language_code" validate:"omitempty,max=35"`
	Provider     string `json:"llm_provider"  validate:"required,max=50"`
	Model        string `json:"llm_model"     validate:"omitempty,max=100"`
	Priority     int    `json:"priority"      validate:"gte=0,lte=10"`
}

// CapacityResponse is returned with 429 when a job was created but could
// not be admitted. The job can be started later with POST /api/jobs/{id}/start.
type CapacityResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	JobID   uuid.UUID   `json:"job_id"`
	Job     *domain.Job `json:"job"`
	TraceID string      `json:"trace_id,omitempty"`
}

// JobListResponse is a page of jobs.
type JobListResponse struct {
	Jobs   []*domain.Job `json:"jobs"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ProgressResponse is the step history of a job.
type ProgressResponse struct {
	JobID    uuid.UUID              `json:"job_id"`
	Progress []domain.ProgressEntry `json:"progress"`
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Message string    `json:"message"`
}

// ProviderListResponse lists every provider.
type ProviderListResponse struct {
	Providers []generation.ProviderInfo `json:"providers"`
}
