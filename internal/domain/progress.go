package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProgressEntry records that a job entered a pipeline step.
type ProgressEntry struct {
	JobID      uuid.UUID `json:"job_id"`
	Step       JobStep   `json:"step"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"timestamp"`
}
