package domain

import "fmt"

// JobStatus represents the processing state of a job.
type JobStatus string

// Possible job status values.
const (
	JobStatusPending         JobStatus = "pending"
	JobStatusValidating      JobStatus = "validating"
	JobStatusFetchingContent JobStatus = "fetching_content"
	JobStatusGenerating      JobStatus = "generating"
	JobStatusFormatting      JobStatus = "formatting"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
	JobStatusCancelled       JobStatus = "cancelled"
)

// forward holds the single successful-path successor of each working state.
// failed and cancelled are reachable from every non-terminal state and are
// handled in CanTransitionTo.
var forward = map[JobStatus]JobStatus{
	JobStatusPending:         JobStatusValidating,
	JobStatusValidating:      JobStatusFetchingContent,
	JobStatusFetchingContent: JobStatusGenerating,
	JobStatusGenerating:      JobStatusFormatting,
	JobStatusFormatting:      JobStatusCompleted,
}

// AllJobStatuses lists every status in state machine order.
func AllJobStatuses() []JobStatus {
	return []JobStatus{
		JobStatusPending,
		JobStatusValidating,
		JobStatusFetchingContent,
		JobStatusGenerating,
		JobStatusFormatting,
		JobStatusCompleted,
		JobStatusFailed,
		JobStatusCancelled,
	}
}

// ParseJobStatus converts a boundary string into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobStatus, s)
	}
	return status, nil
}

// IsValid reports whether s is one of the defined states.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusValidating, JobStatusFetchingContent,
		JobStatusGenerating, JobStatusFormatting, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// IsActive reports whether a job in state s occupies an admission slot.
// Every non-terminal state other than pending counts.
func (s JobStatus) IsActive() bool {
	return s.IsValid() && !s.IsTerminal() && s != JobStatusPending
}

// CanTransitionTo reports whether moving from s to next is an edge of the
// job state machine.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed || next == JobStatusCancelled {
		return true
	}
	return forward[s] == next
}

// String implements fmt.Stringer.
func (s JobStatus) String() string {
	return string(s)
}
