package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/platform/logger"
	"github.com/phrazzld/blogtube-api/internal/store"
)

// jobColumns is the column list shared by every job SELECT, in scan order.
const jobColumns = `id, video_url, video_id, video_title, video_duration, video_thumbnail,
	language_code, language_name, llm_provider, llm_model, status, priority,
	created_at, updated_at, started_at, completed_at, error_message, error_code,
	retry_count, max_retries, processing_time_seconds, transcript_file_path,
	output_file_path, transcript_length, output_length`

// PostgresJobStore implements store.JobStore on PostgreSQL.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a PostgresJobStore over a connection or
// transaction managed by the caller. If logger is nil, a default logger will
// be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ store.JobStore = (*PostgresJobStore)(nil)

// Save implements store.JobStore.Save as an upsert keyed by id. Immutable
// columns (video_url, created_at) are not overwritten.
func (s *PostgresJobStore) Save(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during save",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return store.NewStoreError("job", "save", "validation failed", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (id) DO UPDATE SET
			video_id = EXCLUDED.video_id,
			video_title = EXCLUDED.video_title,
			video_duration = EXCLUDED.video_duration,
			video_thumbnail = EXCLUDED.video_thumbnail,
			language_code = EXCLUDED.language_code,
			language_name = EXCLUDED.language_name,
			llm_provider = EXCLUDED.llm_provider,
			llm_model = EXCLUDED.llm_model,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			error_message = EXCLUDED.error_message,
			error_code = EXCLUDED.error_code,
			retry_count = EXCLUDED.retry_count,
			max_retries = EXCLUDED.max_retries,
			processing_time_seconds = EXCLUDED.processing_time_seconds,
			transcript_file_path = EXCLUDED.transcript_file_path,
			output_file_path = EXCLUDED.output_file_path,
			transcript_length = EXCLUDED.transcript_length,
			output_length = EXCLUDED.output_length
	`
	_, err := s.db.ExecContext(ctx, query, jobArgs(job)...)
	if err != nil {
		log.Error("failed to save job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()),
			slog.String("status", string(job.Status)))
		return store.NewStoreError("job", "save", "failed to save job", MapError(err))
	}

	log.Debug("job saved",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(job.Status)))
	return nil
}

func jobArgs(job *domain.Job) []any {
	var errorCode *string
	if job.ErrorCode != nil {
		code := string(*job.ErrorCode)
		errorCode = &code
	}
	return []any{
		job.ID, job.SourceURL, job.VideoID, job.Title, job.DurationSeconds, job.ThumbnailURL,
		job.LanguageCode, job.LanguageName, job.Provider, job.Model, string(job.Status), job.Priority,
		job.CreatedAt, job.UpdatedAt, job.StartedAt, job.CompletedAt, job.ErrorMessage, errorCode,
		job.RetryCount, job.MaxRetries, job.ProcessingTime, job.TranscriptPath,
		job.OutputPath, job.TranscriptLength, job.OutputLength,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job       domain.Job
		status    string
		errorCode *string
	)
	err := row.Scan(
		&job.ID, &job.SourceURL, &job.VideoID, &job.Title, &job.DurationSeconds, &job.ThumbnailURL,
		&job.LanguageCode, &job.LanguageName, &job.Provider, &job.Model, &status, &job.Priority,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt, &job.ErrorMessage, &errorCode,
		&job.RetryCount, &job.MaxRetries, &job.ProcessingTime, &job.TranscriptPath,
		&job.OutputPath, &job.TranscriptLength, &job.OutputLength,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	if !job.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidJobStatus, status)
	}
	if errorCode != nil {
		code := domain.ErrorCode(*errorCode)
		job.ErrorCode = &code
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

// GetByID implements store.JobStore.GetByID.
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("job not found", slog.String("job_id", id.String()))
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return nil, store.NewStoreError("job", "get", "failed to get job", MapError(err))
	}
	return job, nil
}

// FindByStatus implements store.JobStore.FindByStatus.
func (s *PostgresJobStore) FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at ASC`
	return s.queryJobs(ctx, "find_by_status", query, string(status))
}

// List implements store.JobStore.List.
func (s *PostgresJobStore) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	query, args := buildListQuery(filter.Normalize())
	return s.queryJobs(ctx, "list", query, args...)
}

// buildListQuery renders the filtered, paged job listing.
func buildListQuery(filter store.ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		where = append(where, fmt.Sprintf("llm_provider = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(jobColumns)
	b.WriteString(" FROM jobs")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func (s *PostgresJobStore) queryJobs(ctx context.Context, op, query string, args ...any) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("job", op, "failed to query jobs", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, store.NewStoreError("job", op, "failed to scan job", MapError(err))
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", op, "failed to iterate jobs", MapError(err))
	}
	return jobs, nil
}

// CountByStatus implements store.JobStore.CountByStatus.
func (s *PostgresJobStore) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, store.NewStoreError("job", "count", "failed to count jobs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, store.NewStoreError("job", "count", "failed to scan count", MapError(err))
		}
		counts[domain.JobStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "count", "failed to iterate counts", MapError(err))
	}
	return counts, nil
}

// AppendProgress implements store.JobStore.AppendProgress. An unknown job
// yields store.ErrJobNotFound.
func (s *PostgresJobStore) AppendProgress(ctx context.Context, entry domain.ProgressEntry) error {
	query := `INSERT INTO job_progress (job_id, step, message, recorded_at) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, entry.JobID, string(entry.Step), entry.Message, entry.RecordedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrJobNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append job progress",
			slog.String("error", err.Error()),
			slog.String("job_id", entry.JobID.String()),
			slog.String("step", string(entry.Step)))
		return store.NewStoreError("job_progress", "append", "failed to record progress", MapError(err))
	}
	return nil
}

// ListProgress implements store.JobStore.ListProgress.
func (s *PostgresJobStore) ListProgress(ctx context.Context, jobID uuid.UUID) ([]domain.ProgressEntry, error) {
	query := `SELECT job_id, step, message, recorded_at FROM job_progress WHERE job_id = $1 ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, store.NewStoreError("job_progress", "list", "failed to query progress", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entries := []domain.ProgressEntry{}
	for rows.Next() {
		var (
			entry domain.ProgressEntry
			step  string
		)
		if err := rows.Scan(&entry.JobID, &step, &entry.Message, &entry.RecordedAt); err != nil {
			return nil, store.NewStoreError("job_progress", "list", "failed to scan progress", MapError(err))
		}
		entry.Step = domain.JobStep(step)
		entry.RecordedAt = entry.RecordedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job_progress", "list", "failed to iterate progress", MapError(err))
	}
	return entries, nil
}
