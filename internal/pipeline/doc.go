// Package pipeline drives a single job through its processing steps: URL
// validation, metadata lookup, transcript retrieval, text generation,
// formatting and saving the result.
//
// The Processor never changes a job's status directly. It reports progress,
// status changes and enrichments to the job manager, which persists them and
// notifies observers. A Processor holds no per-run state and may run many
// jobs concurrently.
package pipeline
