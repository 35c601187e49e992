// Package config loads the service configuration from defaults, an optional
// config.yaml, a .env file and BLOGTUBE_-prefixed environment variables,
// and validates it before any component is constructed.
package config
