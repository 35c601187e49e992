package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
	lastText  string
	getErr    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.lastModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastText = contents[0].Parts[0].Text
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeModels) Get(context.Context, string, *genai.GetModelConfig) (*genai.Model, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &genai.Model{}, nil
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
	}
}

func newTestGenerator(models modelsAPI) *Generator {
	return newGenerator(models, Config{
		APIKey:       "test-key",
		DefaultModel: "gemini-2.0-flash",
		Retry:        generation.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var request = generation.Request{
	Transcript: "today we talk about go",
	Title:      "Go Talk",
	SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
}

func TestNewGenerator_Validation(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewGenerator(context.Background(), Config{DefaultModel: "m"}, logger)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(context.Background(), Config{APIKey: "k"}, logger)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(context.Background(), Config{APIKey: "k", DefaultModel: "m"}, nil)
	assert.Error(t, err)
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("# Title\n\n", "Body")}}
	g := newTestGenerator(models)

	text, err := g.Generate(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", text)
	assert.Equal(t, "gemini-2.0-flash", models.lastModel)
	assert.Contains(t, models.lastText, "Video Title: Go Talk")

	withModel := request
	withModel.Model = "gemini-1.5-pro"
	_, err = g.Generate(context.Background(), withModel)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", models.lastModel)
}

func TestGenerator_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		errs:      []error{genai.APIError{Code: http.StatusServiceUnavailable}, errors.New("connection reset")},
		responses: []*genai.GenerateContentResponse{textResponse("post")},
	}
	text, err := newTestGenerator(models).Generate(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "post", text)
	assert.Equal(t, 3, models.calls)
}

func TestGenerator_PermanentErrors(t *testing.T) {
	t.Parallel()

	blocked := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}

	tests := []struct {
		name   string
		models *fakeModels
		want   error
	}{
		{"safety", &fakeModels{responses: []*genai.GenerateContentResponse{blocked}}, generation.ErrContentBlocked},
		{"no candidates", &fakeModels{responses: []*genai.GenerateContentResponse{{}}}, generation.ErrInvalidResponse},
		{"empty text", &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  ")}}, generation.ErrInvalidResponse},
		{"bad key", &fakeModels{errs: []error{genai.APIError{Code: http.StatusForbidden}}}, generation.ErrInvalidConfig},
		{"quota", &fakeModels{errs: []error{genai.APIError{Code: http.StatusTooManyRequests, Message: "Resource has been exhausted (e.g. check quota)."}}}, generation.ErrQuotaExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestGenerator(tc.models).Generate(context.Background(), request)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1, tc.models.calls)
		})
	}
}

func TestGenerator_EmptyTranscript(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	_, err := newTestGenerator(models).Generate(context.Background(), generation.Request{})
	assert.ErrorIs(t, err, generation.ErrEmptyTranscript)
	assert.Zero(t, models.calls)
}

func TestGenerator_Ping(t *testing.T) {
	t.Parallel()

	require.NoError(t, newTestGenerator(&fakeModels{}).Ping(context.Background()))

	err := newTestGenerator(&fakeModels{getErr: genai.APIError{Code: http.StatusUnauthorized}}).Ping(context.Background())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
