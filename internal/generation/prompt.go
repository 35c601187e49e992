package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// SystemPrompt is sent as the system message by providers that support one.
const SystemPrompt = "You are an expert content writer who creates engaging blog posts from video transcripts."

// Sampling settings shared by every provider.
const (
	Temperature = 0.7
	MaxTokens   = 4096
)

//go:embed prompts/blog_post.tmpl
var blogPostTemplate string

var promptTemplate = template.Must(template.New("blog_post").Parse(blogPostTemplate))

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return "", ErrEmptyTranscript
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
