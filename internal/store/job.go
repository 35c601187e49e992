package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
)

// DBTX is implemented by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultListLimit is applied when a ListFilter carries no limit.
const DefaultListLimit = 20

// MaxListLimit caps the page size a caller may request.
const MaxListLimit = 100

// ListFilter narrows a job listing. Zero values mean "no filter".
type ListFilter struct {
	Status   domain.JobStatus
	Provider string
	Limit    int
	Offset   int
}

// Normalize clamps the paging fields into their allowed ranges.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// JobStore defines the persistence collaborator of the job manager.
type JobStore interface {
	// Save inserts or fully replaces the job record. Calling it repeatedly
	// with the same state is harmless.
	Save(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// FindByStatus returns every job currently in the given status, oldest first.
	FindByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)

	// List returns jobs matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*domain.Job, error)

	// CountByStatus returns the number of persisted jobs per status.
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)

	// AppendProgress records that a job entered a pipeline step.
	AppendProgress(ctx context.Context, entry domain.ProgressEntry) error

	// ListProgress returns the progress history of a job in recording order.
	ListProgress(ctx context.Context, jobID uuid.UUID) ([]domain.ProgressEntry, error)
}
