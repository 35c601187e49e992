// Package service implements the use cases behind the HTTP API: submitting,
// starting, retrying and cancelling jobs, downloading their output, previewing
// videos and describing text-generation providers.
//
// Services return sentinel errors for expected conditions and wrap anything
// else in a ServiceError, so the API layer can map errors to status codes
// with errors.Is without seeing storage or provider details.
package service
