package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/blogtube-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var request = generation.Request{
	Transcript: "today we talk about go",
	Title:      "Go Talk",
	SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIKey:       "sk-test",
		BaseURL:      server.URL + "/v1/",
		DefaultModel: "gpt-4o-mini",
		Timeout:      time.Second,
		Retry:        generation.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{DefaultModel: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	_, err = NewClient(Config{APIKey: "k"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestClient_Generate(t *testing.T) {
	t.Parallel()

	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  # Post  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`)
	})

	text, err := client.Generate(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "# Post", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, generation.SystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "Video Title: Go Talk")
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
}

func TestClient_GenerateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		retried bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key sk-test"}}`, generation.ErrInvalidConfig, false},
		{"quota", http.StatusTooManyRequests, `{"error":{"code":"insufficient_quota"}}`, generation.ErrQuotaExceeded, false},
		{"server error", http.StatusInternalServerError, `{}`, generation.ErrTransientFailure, true},
		{"filtered", http.StatusOK, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`, generation.ErrContentBlocked, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, generation.ErrInvalidResponse, false},
		{"garbage", http.StatusOK, `not json`, generation.ErrInvalidResponse, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := client.Generate(context.Background(), request)
			assert.ErrorIs(t, err, tc.want)
			assert.NotContains(t, err.Error(), "sk-test")
			if tc.retried {
				assert.Equal(t, int32(2), calls.Load())
			} else {
				assert.Equal(t, int32(1), calls.Load())
			}
		})
	}
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	require.NoError(t, client.Ping(context.Background()))
}
