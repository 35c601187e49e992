// Package jobs owns the lifecycle of blog-generation jobs.
//
// The Manager keeps the in-memory registry of jobs, enforces the limit on
// concurrently running pipelines, persists every status change through a
// store.JobStore and then notifies observers. A pipeline run is launched by
// Start and stopped cooperatively by Cancel or Shutdown.
package jobs
