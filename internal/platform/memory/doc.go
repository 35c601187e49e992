// Package memory provides an in-process store.JobStore. The server uses it
// when no database URL is configured, and tests use it as a real, fast
// persistence collaborator.
package memory
