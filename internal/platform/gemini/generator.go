package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/blogtube-api/internal/generation"
	"google.golang.org/genai"
)

// Config holds the Gemini settings.
type Config struct {
	APIKey       string
	DefaultModel string
	Retry        generation.RetryPolicy
}

// modelsAPI is the subset of the genai models service the generator uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	models modelsAPI
	cfg    Config
	logger *slog.Logger
}

var (
	_ generation.Generator     = (*Generator)(nil)
	_ generation.HealthChecker = (*Generator)(nil)
)

// NewGenerator creates a Generator with a genai client for cfg.APIKey.
func NewGenerator(ctx context.Context, cfg Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, cfg, logger), nil
}

func newGenerator(models modelsAPI, cfg Config, logger *slog.Logger) *Generator {
	return &Generator{
		models: models,
		cfg:    cfg,
		logger: logger.With("provider", generation.ProviderGoogle),
	}
}

// Generate writes a blog post for req.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	prompt, err := generation.BuildPrompt(req)
	if err != nil {
		return "", err
	}

	model := req.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}

	temperature := float32(generation.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: generation.SystemPrompt}},
		},
	}

	g.logger.InfoContext(ctx, "generating blog post",
		"model", model,
		"transcript_length", len(req.Transcript))

	start := time.Now()
	text, err := generation.WithRetry(ctx, g.cfg.Retry, g.logger, func(ctx context.Context) (string, error) {
		resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", classify(ctx, err)
		}
		return extractText(resp)
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini generation failed", "model", model, "error", err)
		return "", err
	}

	g.logger.InfoContext(ctx, "Gemini generation succeeded",
		"model", model,
		"output_length", len(text),
		"duration", time.Since(start))
	return text, nil
}

// Ping checks that the API key can read the default model.
func (g *Generator) Ping(ctx context.Context) error {
	if _, err := g.models.Get(ctx, g.cfg.DefaultModel, nil); err != nil {
		return classify(ctx, err)
	}
	return nil
}

// extractText validates a response and concatenates its text parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// classify maps a genai client error onto the generation error taxonomy.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	switch {
	case code == 0:
		// No HTTP status means the request never completed.
		return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	case code == http.StatusTooManyRequests && strings.Contains(strings.ToLower(err.Error()), "quota"):
		return fmt.Errorf("%w: gemini status %d", generation.ErrQuotaExceeded, code)
	default:
		return generation.ClassifyHTTPStatus("gemini", code, nil)
	}
}
