package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/notify"
	"github.com/phrazzld/blogtube-api/internal/store"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"
)

// DefaultMaxConcurrent is the admission limit used when Config leaves it unset.
const DefaultMaxConcurrent = 5

// finalizeTimeout bounds the persistence calls made after a run's context
// has already been cancelled.
const finalizeTimeout = 5 * time.Second

// Runner executes the processing pipeline for one job. Run must return when
// ctx is cancelled, at the latest after the step in progress completes.
type Runner interface {
	Run(ctx context.Context, jobID uuid.UUID)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, jobID uuid.UUID)

// Run calls f(ctx, jobID).
func (f RunnerFunc) Run(ctx context.Context, jobID uuid.UUID) { f(ctx, jobID) }

// Broadcaster publishes a message to the observers of a job.
type Broadcaster interface {
	Broadcast(ctx context.Context, jobID string, msg notify.Message) int
}

// ProviderCatalog tells the manager which text-generation providers exist.
type ProviderCatalog interface {
	// DefaultModel returns the provider's default model, or false if the
	// provider is unknown.
	DefaultModel(provider string) (string, bool)
}

// Config holds the manager settings.
type Config struct {
	MaxConcurrent   int
	DefaultLanguage string
}

// CreateRequest is the input of Create.
type CreateRequest struct {
	SourceURL    string `json:"video_url" validate:"required,url,max=2048"`
	LanguageCode string `json:"language_code" validate:"omitempty,max=35"`
	Provider     string `json:"llm_provider" validate:"required,max=50"`
	Model        string `json:"llm_model" validate:"omitempty,max=100"`
	Priority     int    `json:"priority" validate:"gte=0,lte=10"`
	RetryCount   int    `json:"-"`
}

// entry is the registry record of one job.
//
// job is replaced, never mutated in place, and read under Manager.mu.
// update serialises status changes of this job so that read-apply-persist-
// broadcast happens as one unit per job without holding Manager.mu across I/O.
type entry struct {
	update    sync.Mutex
	job       *domain.Job
	cancel    context.CancelFunc
	holdsSlot bool

	// cancelRequested is set by Cancel before the run is stopped. From then
	// on Cancel, not finishRun, decides the final status.
	cancelRequested bool
}

// Manager owns the in-memory job table, enforces the concurrency limit and
// is the only component allowed to change a job's status.
type Manager struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*entry
	active int
	closed bool

	slots    *semaphore.Weighted
	capacity int

	store     store.JobStore
	hub       Broadcaster
	providers ProviderCatalog
	runner    Runner
	validate  *validator.Validate
	cfg       Config

	baseCtx    context.Context
	baseCancel context.CancelFunc

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. The pipeline runner is attached afterwards
// with SetRunner because the runner itself reports back to the manager.
func NewManager(
	jobStore store.JobStore,
	hub Broadcaster,
	providers ProviderCatalog,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Manager {
	if jobStore == nil {
		panic("jobStore cannot be nil")
	}
	if hub == nil {
		panic("hub cannot be nil")
	}
	if providers == nil {
		panic("providers cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		jobs:       make(map[uuid.UUID]*entry),
		slots:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		capacity:   cfg.MaxConcurrent,
		store:      jobStore,
		hub:        hub,
		providers:  providers,
		validate:   validator.New(),
		cfg:        cfg,
		baseCtx:    ctx,
		baseCancel: cancel,
		logger:     logger.With("component", "job_manager"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRunner attaches the pipeline runner. It must be called before Start.
func (m *Manager) SetRunner(r Runner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runner = r
}

// Create validates req, persists a new pending job and returns its id.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (uuid.UUID, error) {
	if err := m.validate.Struct(req); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	defaultModel, ok := m.providers.DefaultModel(provider)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unsupported or unconfigured provider %q", ErrInvalidRequest, req.Provider)
	}
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = m.cfg.DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid language code %q", ErrInvalidRequest, lang)
	}

	job, err := domain.NewJob(req.SourceURL, tag.String(), provider, model, req.Priority)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	job.RetryCount = req.RetryCount

	if err := m.store.Save(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save job: %w", err)
	}

	m.mu.Lock()
	m.jobs[job.ID] = &entry{job: job}
	m.mu.Unlock()

	m.logger.Info("job created",
		"job_id", job.ID,
		"provider", job.Provider,
		"model", job.Model,
		"language", job.LanguageCode)

	return job.ID, nil
}

// Start admits a pending job and launches its pipeline run. It returns
// ErrCapacityExceeded, leaving the job pending, when the concurrency limit
// is reached.
func (m *Manager) Start(ctx context.Context, id uuid.UUID) error {
	e, err := m.entry(ctx, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShuttingDown
	}
	if m.runner == nil {
		m.mu.Unlock()
		return errors.New("job manager has no runner")
	}
	if e.job.Status != domain.JobStatusPending || e.cancel != nil {
		status := e.job.Status
		m.mu.Unlock()
		return fmt.Errorf("%w: job is %s", ErrInvalidState, status)
	}
	// Check and reserve happen under one lock; TryAcquire never blocks.
	if !m.slots.TryAcquire(1) {
		m.mu.Unlock()
		return ErrCapacityExceeded
	}
	m.active++
	e.holdsSlot = true
	runCtx, cancel := context.WithCancel(m.baseCtx)
	e.cancel = cancel
	runner := m.runner
	m.mu.Unlock()

	if err := m.UpdateStatus(ctx, id, domain.JobStatusValidating, domain.StatusDetail{}); err != nil {
		cancel()
		m.mu.Lock()
		e.cancel = nil
		m.releaseLocked(e)
		m.mu.Unlock()
		return fmt.Errorf("failed to start job: %w", err)
	}

	m.logger.Info("job started", "job_id", id, "active_jobs", m.ActiveCount())

	go func() {
		defer cancel()
		defer m.finishRun(id, runCtx)
		runner.Run(runCtx, id)
	}()

	return nil
}

// finishRun makes sure a job whose run has returned is terminal and no
// longer holds an admission slot.
func (m *Manager) finishRun(id uuid.UUID, runCtx context.Context) {
	if r := recover(); r != nil {
		m.logger.Error("pipeline run panicked", "job_id", id, "panic", r)
	}

	m.mu.Lock()
	e, ok := m.jobs[id]
	var status domain.JobStatus
	var cancelRequested bool
	if ok {
		status = e.job.Status
		cancelRequested = e.cancelRequested
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if !status.IsTerminal() && !cancelRequested {
		detail := domain.StatusDetail{
			Message: "Job failed: processing stopped unexpectedly",
			Code:    domain.ErrorCodeInternal,
		}
		if runCtx.Err() != nil {
			detail = domain.StatusDetail{
				Message: "Job failed: interrupted by server shutdown",
				Code:    domain.ErrorCodeInterrupted,
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		err := m.transition(ctx, e, id, domain.JobStatusFailed, detail, true)
		cancel()
		if err != nil {
			m.logger.Error("failed to finalize job after run, marking failed in memory only",
				"job_id", id,
				"error", err)
			m.mu.Lock()
			failed := e.job.Clone()
			if applyErr := failed.ApplyStatus(domain.JobStatusFailed, detail, m.now()); applyErr == nil {
				e.job = failed
			}
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	e.cancel = nil
	m.releaseLocked(e)
	m.mu.Unlock()
}

// releaseLocked returns the entry's admission slot if it holds one.
// m.mu must be held.
func (m *Manager) releaseLocked(e *entry) {
	if !e.holdsSlot {
		return
	}
	e.holdsSlot = false
	m.active--
	m.slots.Release(1)
}

// Cancel requests cooperative cancellation of an active job and moves it to
// cancelled. It returns false if the job is unknown or not running.
//
// A status write the run has in flight completes first; the cancelled
// status is written after it under the same per-job lock.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok || e.cancel == nil || e.job.Status.IsTerminal() {
		m.mu.Unlock()
		return false, nil
	}
	e.cancelRequested = true
	cancel := e.cancel
	m.mu.Unlock()

	cancel()

	err := m.transition(ctx, e, id, domain.JobStatusCancelled, domain.StatusDetail{}, false)
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			// The run reached a terminal state first.
			return false, nil
		}
		m.logger.Error("failed to persist cancellation, marking cancelled in memory only",
			"job_id", id,
			"error", err)
		m.mu.Lock()
		cancelled := e.job.Clone()
		if applyErr := cancelled.ApplyStatus(domain.JobStatusCancelled, domain.StatusDetail{}, m.now()); applyErr == nil {
			e.job = cancelled
			m.releaseLocked(e)
		}
		m.mu.Unlock()
		return false, err
	}

	m.logger.Info("job cancelled", "job_id", id)
	return true, nil
}

// UpdateStatus moves a job along the state machine, persists the change and
// then notifies the job's observers. Nothing is broadcast if persisting
// fails. Entering a terminal state releases the job's admission slot.
//
// An illegal transition is a programming error: it is logged at error level
// and returned wrapped in domain.ErrIllegalTransition.
func (m *Manager) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, detail domain.StatusDetail) error {
	e, err := m.entry(ctx, id)
	if err != nil {
		return err
	}
	return m.transition(ctx, e, id, status, detail, false)
}

// transition performs a status change under the job's update lock. With
// skipTerminal set, a job that is already terminal is left untouched.
func (m *Manager) transition(ctx context.Context, e *entry, id uuid.UUID, status domain.JobStatus, detail domain.StatusDetail, skipTerminal bool) error {
	e.update.Lock()
	defer e.update.Unlock()

	m.mu.Lock()
	next := e.job.Clone()
	m.mu.Unlock()

	from := next.Status
	if skipTerminal && from.IsTerminal() {
		return nil
	}
	if err := next.ApplyStatus(status, detail, m.now()); err != nil {
		m.logger.Error("rejected job status transition",
			"job_id", id,
			"from", from,
			"to", status,
			"error", err)
		return err
	}

	if err := m.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist job status: %w", err)
	}

	m.mu.Lock()
	e.job = next
	if status.IsTerminal() {
		m.releaseLocked(e)
	}
	m.mu.Unlock()

	m.logger.Debug("job status updated", "job_id", id, "from", from, "to", status)

	m.hub.Broadcast(ctx, id.String(), jobUpdateMessage(next))
	return nil
}

func jobUpdateMessage(job *domain.Job) notify.Message {
	data := map[string]any{
		"status":     string(job.Status),
		"updated_at": job.UpdatedAt.Format(time.RFC3339Nano),
		"message":    "",
	}
	if job.ErrorMessage != nil {
		data["message"] = *job.ErrorMessage
	}
	if job.ErrorCode != nil {
		data["error_code"] = string(*job.ErrorCode)
	}
	if job.OutputPath != nil {
		data["output_file_path"] = *job.OutputPath
	}
	if job.ProcessingTime != nil {
		data["processing_time_seconds"] = *job.ProcessingTime
	}
	return notify.NewMessage(notify.TypeJobUpdate, job.ID.String(), data)
}

// ReportProgress records that a job entered step and tells its observers.
func (m *Manager) ReportProgress(ctx context.Context, id uuid.UUID, step domain.JobStep, message string) error {
	progress := domain.ProgressEntry{
		JobID:      id,
		Step:       step,
		Message:    message,
		RecordedAt: m.now().UTC(),
	}
	if err := m.store.AppendProgress(ctx, progress); err != nil {
		return fmt.Errorf("failed to persist job progress: %w", err)
	}

	m.hub.Broadcast(ctx, id.String(), notify.NewMessage(notify.TypeProgressUpdate, id.String(), map[string]any{
		"step":      string(step),
		"message":   message,
		"timestamp": progress.RecordedAt.Format(time.RFC3339Nano),
	}))
	return nil
}

// Enrich applies fn to a copy of the job and persists the result. fn may set
// descriptive fields such as video metadata or output paths but must not
// change the status.
func (m *Manager) Enrich(ctx context.Context, id uuid.UUID, fn func(job *domain.Job)) error {
	e, err := m.entry(ctx, id)
	if err != nil {
		return err
	}

	e.update.Lock()
	defer e.update.Unlock()

	m.mu.Lock()
	next := e.job.Clone()
	m.mu.Unlock()

	status := next.Status
	fn(next)
	if next.Status != status || next.ID != id {
		return fmt.Errorf("%w: enrichment may not change id or status", domain.ErrIllegalTransition)
	}
	next.UpdatedAt = m.now().UTC()

	if err := m.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	m.mu.Lock()
	e.job = next
	m.mu.Unlock()
	return nil
}

// Get returns a snapshot of the job, loading it from the store on a registry
// miss.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	e, err := m.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return e.job.Clone(), nil
}

// entry returns the registry entry for id, loading the job from the store
// once if it is not in memory.
func (m *Manager) entry(ctx context.Context, id uuid.UUID) (*entry, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if ok {
		return e, nil
	}

	job, err := m.store.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[id]; ok {
		return existing, nil
	}
	e = &entry{job: job}
	m.jobs[id] = e
	return e, nil
}

// List returns persisted jobs matching filter.
func (m *Manager) List(ctx context.Context, filter store.ListFilter) ([]*domain.Job, error) {
	jobs, err := m.store.List(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Progress returns the recorded step history of a job.
func (m *Manager) Progress(ctx context.Context, id uuid.UUID) ([]domain.ProgressEntry, error) {
	if _, err := m.entry(ctx, id); err != nil {
		return nil, err
	}
	entries, err := m.store.ListProgress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job progress: %w", err)
	}
	return entries, nil
}

// ActiveCount returns the number of jobs currently holding an admission slot.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CanAdmit reports whether Start would currently find a free slot.
func (m *Manager) CanAdmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.active < m.capacity
}

// Capacity returns the configured concurrency limit.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Cleanup evicts terminal jobs completed more than olderThan ago from the
// registry and returns how many were evicted. Persisted records are kept.
func (m *Manager) Cleanup(olderThan time.Duration) int {
	cutoff := m.now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.jobs {
		job := e.job
		if !job.Status.IsTerminal() || e.cancel != nil || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("evicted finished jobs from registry", "count", removed, "retention", olderThan)
	}
	return removed
}

// Recover marks jobs left mid-pipeline by a previous process as failed.
// Pending jobs are left alone so clients can still start them.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	interrupted := []domain.JobStatus{
		domain.JobStatusValidating,
		domain.JobStatusFetchingContent,
		domain.JobStatusGenerating,
		domain.JobStatusFormatting,
	}

	recovered := 0
	for _, status := range interrupted {
		jobs, err := m.store.FindByStatus(ctx, status)
		if err != nil {
			return recovered, fmt.Errorf("failed to find %s jobs: %w", status, err)
		}
		for _, job := range jobs {
			err := m.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, domain.StatusDetail{
				Message: "Job failed: interrupted by server restart",
				Code:    domain.ErrorCodeInterrupted,
			})
			if err != nil {
				m.logger.Error("failed to recover interrupted job", "job_id", job.ID, "error", err)
				continue
			}
			recovered++
		}
	}

	m.logger.Info("recovered interrupted jobs", "count", recovered)
	return recovered, nil
}

// Shutdown stops admitting jobs, cancels every active run and waits until
// all admission slots are returned or ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	active := m.active
	m.mu.Unlock()

	m.logger.Info("shutting down job manager", "active_jobs", active)
	m.baseCancel()

	if err := m.slots.Acquire(ctx, int64(m.capacity)); err != nil {
		return fmt.Errorf("timed out waiting for active jobs: %w", err)
	}
	m.slots.Release(int64(m.capacity))
	return nil
}
