// Package domain contains the core entities of the service: the Job that
// tracks one YouTube-to-blog conversion, its status state machine, the
// pipeline step identifiers, and the error codes surfaced to clients.
//
// Nothing in this package performs I/O. Mutation rules that involve
// persistence or notification live in the jobs package, which is the only
// component allowed to change a Job's status.
package domain
