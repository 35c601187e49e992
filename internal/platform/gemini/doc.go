// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini API.
//
// This package is an infrastructure adapter: it renders the shared blog
// prompt, calls the Gemini models API through the google.golang.org/genai
// client and translates API failures into the generation error taxonomy.
// Transient failures are retried with exponential backoff and jitter.
package gemini
