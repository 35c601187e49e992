// Package postgres implements the job store on PostgreSQL through the pgx
// database/sql driver and carries the goose migrations that create its
// schema.
package postgres
