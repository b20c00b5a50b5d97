// Package main is the entry point for the fsorch server.
//
// fsorch applies file mutations on behalf of remote callers as named
// tools: single operations, all-or-nothing transactions with rollback,
// and batches run in concurrent chunks, with a read cache kept coherent
// with every mutation.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve /srv/data on :8000
//	./server -root /srv/data
//
//	# In-memory storage, console logs at debug level
//	./server -backend memory -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
