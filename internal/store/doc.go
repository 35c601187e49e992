// Package store defines the persistence interfaces the application depends
// on, together with the errors every implementation returns. Postgres and
// in-memory implementations live under internal/platform.
package store
