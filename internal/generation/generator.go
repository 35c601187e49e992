package generation

import "context"

// Request is the input of one blog generation.
type Request struct {
	Transcript string
	Title      string
	SourceURL  string
	Model      string
}

// Generator writes a Markdown blog post from a video transcript.
//
// Implementations return errors wrapping the sentinels in errors.go so
// callers can classify failures without inspecting provider-specific detail.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// HealthChecker is implemented by generators that can verify their
// credentials and connectivity cheaply.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
