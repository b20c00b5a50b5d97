// Package config provides 12-factor configuration management for the service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Storage: Filesystem root and backend (local, memory)
//   - Cache: Operation cache capacity and TTL
//   - Batch: Default and maximum batch concurrency
//   - Transaction: Retention of finished transactions and batches
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - STORAGE_ROOT, STORAGE_BACKEND
//   - CACHE_CAPACITY, CACHE_TTL
//   - BATCH_CONCURRENCY, BATCH_MAX_CONCURRENCY, TX_RETENTION
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
