// Package api adapts HTTP and WebSocket clients to the job services. It
// decodes and validates requests, maps service errors to status codes with
// client-safe messages, and upgrades observer connections for the
// notification hub.
package api
