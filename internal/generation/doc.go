// Package generation provides the boundary between the pipeline and the
// external LLM services that write blog posts from video transcripts.
//
// A Generator turns a transcript into Markdown. Concrete generators for
// Gemini, OpenAI and Anthropic live under internal/platform; they share the
// prompt template, the retry policy and the error taxonomy defined here.
// The Registry knows every supported provider, its models and whether it is
// configured and healthy.
package generation
