// Package middleware provides the gin middleware in front of the tool API:
// CORS, per-client rate limiting and request ids.
package middleware
