package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/phrazzld/blogtube-api/internal/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVideoService_Details(t *testing.T) {
	ctx := context.Background()
	info := youtube.VideoInfo{VideoID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up"}

	t.Run("metadata and languages", func(t *testing.T) {
		lookup := new(MockVideoLookup)
		lookup.On("Resolve", ctx, testVideoURL).Return(info, nil)
		lookup.On("ListVariants", ctx, "dQw4w9WgXcQ").Return([]youtube.Variant{{Code: "en", Name: "English"}}, nil)

		details, err := NewVideoService(lookup, nil).Details(ctx, testVideoURL)
		require.NoError(t, err)
		assert.Equal(t, "Never Gonna Give You Up", details.Title)
		assert.True(t, details.TranscriptsAvailable)
		assert.Len(t, details.Languages, 1)
		lookup.AssertExpectations(t)
	})

	t.Run("transient metadata failure falls back", func(t *testing.T) {
		lookup := new(MockVideoLookup)
		lookup.On("Resolve", ctx, testVideoURL).Return(youtube.VideoInfo{}, fmt.Errorf("%w: timeout", youtube.ErrTransient))
		lookup.On("ListVariants", ctx, "dQw4w9WgXcQ").Return(nil, youtube.ErrTranscriptUnavailable)

		details, err := NewVideoService(lookup, nil).Details(ctx, testVideoURL)
		require.NoError(t, err)
		assert.Equal(t, "YouTube Video dQw4w9WgXcQ", details.Title)
		assert.False(t, details.TranscriptsAvailable)
		assert.Empty(t, details.Languages)
	})

	t.Run("invalid url never reaches youtube", func(t *testing.T) {
		lookup := new(MockVideoLookup)
		_, err := NewVideoService(lookup, nil).Details(ctx, "https://example.com/watch?v=dQw4w9WgXcQ")
		assert.ErrorIs(t, err, youtube.ErrInvalidURL)
		lookup.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	})

	t.Run("missing video", func(t *testing.T) {
		lookup := new(MockVideoLookup)
		lookup.On("Resolve", ctx, testVideoURL).Return(youtube.VideoInfo{}, youtube.ErrVideoNotFound)

		_, err := NewVideoService(lookup, nil).Details(ctx, testVideoURL)
		assert.ErrorIs(t, err, youtube.ErrVideoNotFound)
	})
}

func TestProviderService(t *testing.T) {
	ctx := context.Background()

	t.Run("models", func(t *testing.T) {
		catalog := new(MockProviderCatalog)
		catalog.On("Info", "openai").Return(generation.ProviderInfo{Name: "openai", DefaultModel: "gpt-4o-mini"}, nil)
		catalog.On("Models", "openai").Return([]string{"gpt-4o-mini", "gpt-4o"}, nil)

		models, err := NewProviderService(catalog).Models("openai")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", models.DefaultModel)
		assert.Len(t, models.Models, 2)
	})

	t.Run("unknown provider", func(t *testing.T) {
		catalog := new(MockProviderCatalog)
		catalog.On("Info", "cohere").Return(generation.ProviderInfo{}, fmt.Errorf("%w: cohere", generation.ErrUnknownProvider))

		_, err := NewProviderService(catalog).Models("cohere")
		assert.ErrorIs(t, err, generation.ErrUnknownProvider)
	})

	t.Run("health", func(t *testing.T) {
		catalog := new(MockProviderCatalog)
		catalog.On("Health", ctx, "google").Return(generation.Health{Provider: "google", Available: true}, nil)

		h, err := NewProviderService(catalog).Health(ctx, "google")
		require.NoError(t, err)
		assert.True(t, h.Available)
	})
}
