package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries is stored on every new job. The orchestration core does
// not retry failed jobs; the value is informational for clients.
const DefaultMaxRetries = 3

// Job is one end-to-end conversion of a YouTube video into a blog post.
type Job struct {
	ID               uuid.UUID  `json:"id"`
	SourceURL        string     `json:"video_url"`
	VideoID          string     `json:"video_id,omitempty"`
	Title            *string    `json:"video_title,omitempty"`
	DurationSeconds  *int       `json:"video_duration,omitempty"`
	ThumbnailURL     *string    `json:"video_thumbnail,omitempty"`
	LanguageCode     string     `json:"language_code"`
	LanguageName     *string    `json:"language_name,omitempty"`
	Provider         string     `json:"llm_provider"`
	Model            string     `json:"llm_model,omitempty"`
	Status           JobStatus  `json:"status"`
	Priority         int        `json:"priority"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	ErrorCode        *ErrorCode `json:"error_code,omitempty"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	ProcessingTime   *float64   `json:"processing_time_seconds,omitempty"`
	TranscriptPath   *string    `json:"transcript_file_path,omitempty"`
	OutputPath       *string    `json:"output_file_path,omitempty"`
	TranscriptLength int        `json:"transcript_length,omitempty"`
	OutputLength     int        `json:"output_length,omitempty"`
}

// StatusDetail carries the optional failure information attached to a
// status change.
type StatusDetail struct {
	Message string
	Code    ErrorCode
}

// NewJob creates a pending Job for the given source URL and provider.
// Returns an error if validation fails.
func NewJob(sourceURL, languageCode, provider, model string, priority int) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:           uuid.New(),
		SourceURL:    strings.TrimSpace(sourceURL),
		LanguageCode: languageCode,
		Provider:     provider,
		Model:        model,
		Status:       JobStatusPending,
		Priority:     priority,
		CreatedAt:    now,
		UpdatedAt:    now,
		MaxRetries:   DefaultMaxRetries,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrInvalidID
	}
	if j.SourceURL == "" {
		return ErrEmptySourceURL
	}
	if j.Provider == "" {
		return ErrEmptyProvider
	}
	if !j.Status.IsValid() {
		return ErrInvalidJobStatus
	}
	return nil
}

// ApplyStatus moves the job to next, stamping timestamps the way the state
// machine requires. It does not persist or publish anything.
//
// Entering validating stamps StartedAt. Entering any terminal state stamps
// CompletedAt and, when StartedAt is known, ProcessingTime. Failure details
// are recorded when next is failed.
func (j *Job) ApplyStatus(next JobStatus, detail StatusDetail, now time.Time) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, j.Status, next)
	}

	now = now.UTC()
	j.Status = next
	j.UpdatedAt = now

	if next == JobStatusValidating && j.StartedAt == nil {
		started := now
		j.StartedAt = &started
	}

	if next == JobStatusFailed {
		msg := detail.Message
		if msg == "" {
			msg = "Job failed"
		}
		code := detail.Code
		if code == "" {
			code = ErrorCodeInternal
		}
		j.ErrorMessage = &msg
		j.ErrorCode = &code
	}

	if next.IsTerminal() {
		completed := now
		j.CompletedAt = &completed
		if j.StartedAt != nil {
			seconds := completed.Sub(*j.StartedAt).Seconds()
			j.ProcessingTime = &seconds
		}
	}

	return nil
}

// Clone returns a deep copy of the job so callers can hand out snapshots
// without sharing pointer fields with the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Title = clonePtr(j.Title)
	c.DurationSeconds = clonePtr(j.DurationSeconds)
	c.ThumbnailURL = clonePtr(j.ThumbnailURL)
	c.LanguageName = clonePtr(j.LanguageName)
	c.StartedAt = clonePtr(j.StartedAt)
	c.CompletedAt = clonePtr(j.CompletedAt)
	c.ErrorMessage = clonePtr(j.ErrorMessage)
	c.ErrorCode = clonePtr(j.ErrorCode)
	c.ProcessingTime = clonePtr(j.ProcessingTime)
	c.TranscriptPath = clonePtr(j.TranscriptPath)
	c.OutputPath = clonePtr(j.OutputPath)
	return &c
}

// DisplayTitle returns the resolved title or a placeholder built from the
// video ID.
func (j *Job) DisplayTitle() string {
	if j.Title != nil && *j.Title != "" {
		return *j.Title
	}
	if j.VideoID != "" {
		return "YouTube Video " + j.VideoID
	}
	return "YouTube Video"
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
