package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/blogtube-api/internal/domain"
	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/lang"
	"github.com/phrazzld/blogtube-api/internal/redact"
	"github.com/phrazzld/blogtube-api/internal/youtube"
)

// Dependency errors returned by NewProcessor.
var (
	ErrNilTracker    = errors.New("job tracker cannot be nil")
	ErrNilResolver   = errors.New("media resolver cannot be nil")
	ErrNilLister     = errors.New("variant lister cannot be nil")
	ErrNilFetcher    = errors.New("content fetcher cannot be nil")
	ErrNilGenerators = errors.New("generator source cannot be nil")
	ErrNilFormatter  = errors.New("formatter cannot be nil")
	ErrNilArtifacts  = errors.New("artifact writer cannot be nil")
)

// JobTracker is the part of the job manager the pipeline reports to.
type JobTracker interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, detail domain.StatusDetail) error
	ReportProgress(ctx context.Context, id uuid.UUID, step domain.JobStep, message string) error
	Enrich(ctx context.Context, id uuid.UUID, fn func(job *domain.Job)) error
}

// MediaResolver looks up video metadata.
type MediaResolver interface {
	Resolve(ctx context.Context, rawURL string) (youtube.VideoInfo, error)
}

// VariantLister lists the transcript languages of a video.
type VariantLister interface {
	ListVariants(ctx context.Context, videoID string) ([]youtube.Variant, error)
}

// ContentFetcher downloads a transcript.
type ContentFetcher interface {
	Fetch(ctx context.Context, videoID, languageCode string) (youtube.Transcript, error)
}

// GeneratorSource hands out the generator of a provider.
type GeneratorSource interface {
	Generator(provider string) (generation.Generator, error)
}

// Formatter turns generated text into the final document.
type Formatter interface {
	Format(content, title, sourceURL string) string
}

// ArtifactWriter stores transcripts and finished posts.
type ArtifactWriter interface {
	SaveTranscript(ctx context.Context, jobID uuid.UUID, text string) (string, error)
	Save(ctx context.Context, jobID uuid.UUID, content string) (string, error)
}

// Deps groups the collaborators of a Processor.
type Deps struct {
	Tracker    JobTracker
	Resolver   MediaResolver
	Lister     VariantLister
	Fetcher    ContentFetcher
	Generators GeneratorSource
	Formatter  Formatter
	Artifacts  ArtifactWriter
}

// Processor runs the conversion pipeline. It implements jobs.Runner.
type Processor struct {
	deps   Deps
	logger *slog.Logger
}

// NewProcessor validates deps and creates a Processor.
func NewProcessor(deps Deps, logger *slog.Logger) (*Processor, error) {
	switch {
	case deps.Tracker == nil:
		return nil, ErrNilTracker
	case deps.Resolver == nil:
		return nil, ErrNilResolver
	case deps.Lister == nil:
		return nil, ErrNilLister
	case deps.Fetcher == nil:
		return nil, ErrNilFetcher
	case deps.Generators == nil:
		return nil, ErrNilGenerators
	case deps.Formatter == nil:
		return nil, ErrNilFormatter
	case deps.Artifacts == nil:
		return nil, ErrNilArtifacts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		deps:   deps,
		logger: logger.With("component", "pipeline"),
	}, nil
}

// Run processes one job. A cancelled ctx lets the current step finish and
// stops the run at the next step boundary without a further status update;
// the canceller owns the final status. Any other failure marks the job failed with a classified code.
func (p *Processor) Run(ctx context.Context, jobID uuid.UUID) {
	log := p.logger.With("job_id", jobID)
	log.Info("starting job pipeline")

	err := p.run(ctx, jobID, log)
	if err == nil {
		log.Info("job pipeline completed")
		return
	}
	if ctx.Err() != nil {
		log.Info("job pipeline stopped", "reason", ctx.Err())
		return
	}

	code := domain.CodeOf(err)
	cause := err
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) && stepErr.Err != nil {
		cause = stepErr.Err
	}
	log.Error("job pipeline failed", "error", err, "error_code", code)

	detail := domain.StatusDetail{
		Message: "Job failed: " + redact.Error(cause),
		Code:    code,
	}
	if err := p.deps.Tracker.UpdateStatus(context.WithoutCancel(ctx), jobID, domain.JobStatusFailed, detail); err != nil {
		log.Error("failed to record job failure", "error", err)
	}
}

// run executes the steps in order and returns the first error.
func (p *Processor) run(ctx context.Context, jobID uuid.UUID, log *slog.Logger) error {
	r := &run{p: p, ctx: ctx, id: jobID, log: log}

	job, err := p.deps.Tracker.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	// Validating.
	videoID, err := r.validateURL(job)
	if err != nil {
		return err
	}
	info, err := r.fetchVideoInfo(job, videoID)
	if err != nil {
		return err
	}

	// Fetching content.
	if err := r.advance(domain.JobStatusFetchingContent); err != nil {
		return err
	}
	if err := r.detectLanguages(videoID); err != nil {
		return err
	}
	transcript, err := r.fetchTranscript(job, videoID)
	if err != nil {
		return err
	}

	// Generating.
	if err := r.advance(domain.JobStatusGenerating); err != nil {
		return err
	}
	content, err := r.generate(job, info, transcript)
	if err != nil {
		return err
	}

	// Formatting.
	if err := r.advance(domain.JobStatusFormatting); err != nil {
		return err
	}
	post, err := r.format(job, info, content)
	if err != nil {
		return err
	}
	if err := r.save(post); err != nil {
		return err
	}

	return r.advance(domain.JobStatusCompleted)
}

// run carries the state of one pipeline execution.
type run struct {
	p   *Processor
	ctx context.Context
	id  uuid.UUID
	log *slog.Logger
}

// reportCtx is used for bookkeeping calls so that a cancellation racing with
// a write does not leave it half done.
func (r *run) reportCtx() context.Context {
	return context.WithoutCancel(r.ctx)
}

// stepCtx is passed to collaborators. A step that has begun runs to
// completion; cancellation is observed at the next step boundary.
func (r *run) stepCtx() context.Context {
	return context.WithoutCancel(r.ctx)
}

// enter checks for cancellation and announces step.
func (r *run) enter(step domain.JobStep, message string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if err := r.p.deps.Tracker.ReportProgress(r.reportCtx(), r.id, step, message); err != nil {
		return domain.NewStepError(step, domain.ErrorCodeInternal, err)
	}
	r.log.Debug("entered pipeline step", "step", step)
	return nil
}

// advance checks for cancellation and moves the job to status.
func (r *run) advance(status domain.JobStatus) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if err := r.p.deps.Tracker.UpdateStatus(r.reportCtx(), r.id, status, domain.StatusDetail{}); err != nil {
		return fmt.Errorf("failed to move job to %s: %w", status, err)
	}
	return nil
}

func (r *run) enrich(step domain.JobStep, fn func(job *domain.Job)) error {
	if err := r.p.deps.Tracker.Enrich(r.reportCtx(), r.id, fn); err != nil {
		return domain.NewStepError(step, domain.ErrorCodeInternal, err)
	}
	return nil
}

func (r *run) validateURL(job *domain.Job) (string, error) {
	if err := r.enter(domain.StepValidateURL, "Validating YouTube URL..."); err != nil {
		return "", err
	}
	videoID, err := youtube.ParseVideoID(job.SourceURL)
	if err != nil {
		return "", fail(domain.StepValidateURL, err)
	}
	return videoID, nil
}

func (r *run) fetchVideoInfo(job *domain.Job, videoID string) (youtube.VideoInfo, error) {
	if err := r.enter(domain.StepFetchVideoInfo, "Fetching video information..."); err != nil {
		return youtube.VideoInfo{}, err
	}

	info, err := r.p.deps.Resolver.Resolve(r.stepCtx(), job.SourceURL)
	switch {
	case err == nil:
	case youtube.IsTransient(err) && r.ctx.Err() == nil:
		r.log.Warn("video metadata unavailable, using fallback title", "video_id", videoID, "error", err)
		info = youtube.FallbackInfo(videoID)
	default:
		return youtube.VideoInfo{}, fail(domain.StepFetchVideoInfo, err)
	}

	err = r.enrich(domain.StepFetchVideoInfo, func(j *domain.Job) {
		j.VideoID = videoID
		title := info.Title
		j.Title = &title
		if info.ThumbnailURL != "" {
			thumb := info.ThumbnailURL
			j.ThumbnailURL = &thumb
		}
	})
	return info, err
}

func (r *run) detectLanguages(videoID string) error {
	if err := r.enter(domain.StepDetectLanguages, "Detecting available languages..."); err != nil {
		return err
	}
	variants, err := r.p.deps.Lister.ListVariants(r.stepCtx(), videoID)
	if err != nil {
		return fail(domain.StepDetectLanguages, err)
	}
	if len(variants) == 0 {
		return fail(domain.StepDetectLanguages, youtube.ErrTranscriptUnavailable)
	}
	r.log.Debug("transcript languages available", "count", len(variants))
	return nil
}

func (r *run) fetchTranscript(job *domain.Job, videoID string) (youtube.Transcript, error) {
	if err := r.enter(domain.StepFetchTranscript, "Fetching video transcript..."); err != nil {
		return youtube.Transcript{}, err
	}

	transcript, err := r.p.deps.Fetcher.Fetch(r.stepCtx(), videoID, job.LanguageCode)
	if err != nil {
		return youtube.Transcript{}, fail(domain.StepFetchTranscript, err)
	}

	languageName := lang.DisplayName(transcript.LanguageCode)
	if detected := lang.Detect(transcript.Text); detected.Reliable && detected.Code != lang.Base(transcript.LanguageCode) {
		r.log.Warn("transcript language differs from its label",
			"label", transcript.LanguageCode,
			"detected", detected.Code,
			"confidence", detected.Confidence)
		languageName = detected.Name
	}

	path, err := r.p.deps.Artifacts.SaveTranscript(r.stepCtx(), r.id, transcript.Text)
	if err != nil {
		return youtube.Transcript{}, fail(domain.StepFetchTranscript, err)
	}

	err = r.enrich(domain.StepFetchTranscript, func(j *domain.Job) {
		j.TranscriptPath = &path
		j.TranscriptLength = len(transcript.Text)
		j.LanguageName = &languageName
	})
	return transcript, err
}

func (r *run) generate(job *domain.Job, info youtube.VideoInfo, transcript youtube.Transcript) (string, error) {
	if err := r.enter(domain.StepGenerateContent, "Generating blog content with "+job.Provider+"..."); err != nil {
		return "", err
	}

	gen, err := r.p.deps.Generators.Generator(job.Provider)
	if err != nil {
		return "", fail(domain.StepGenerateContent, err)
	}

	content, err := gen.Generate(r.stepCtx(), generation.Request{
		Transcript: transcript.Text,
		Title:      info.Title,
		SourceURL:  job.SourceURL,
		Model:      job.Model,
	})
	if err != nil {
		return "", fail(domain.StepGenerateContent, err)
	}
	return content, nil
}

func (r *run) format(job *domain.Job, info youtube.VideoInfo, content string) (string, error) {
	if err := r.enter(domain.StepFormatBlog, "Formatting blog post..."); err != nil {
		return "", err
	}
	return r.p.deps.Formatter.Format(content, info.Title, job.SourceURL), nil
}

func (r *run) save(post string) error {
	if err := r.enter(domain.StepSaveOutput, "Saving output file..."); err != nil {
		return err
	}
	path, err := r.p.deps.Artifacts.Save(r.stepCtx(), r.id, post)
	if err != nil {
		return fail(domain.StepSaveOutput, err)
	}
	return r.enrich(domain.StepSaveOutput, func(j *domain.Job) {
		j.OutputPath = &path
		j.OutputLength = len(post)
	})
}
