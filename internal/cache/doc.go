// Package cache provides a process-local TTL cache used to avoid repeating
// slow external lookups: video metadata, transcript language lists and
// provider health checks.
//
// Expiry is checked lazily on Get and proactively by SweepExpired, which the
// server runs on a schedule. Both use the same rule: an entry is gone once
// the current time is strictly after its expiry time.
package cache
