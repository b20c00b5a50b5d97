/*
Package monitoring provides Prometheus metrics for the service.

# Overview

Metrics are registered on an injected prometheus.Registerer. The server
uses the default registry; tests use prometheus.NewRegistry().

# Collectors

- HTTP request metrics (latency, throughput, size)
- Tool call metrics (duration, status)
- Mutations by kind, phase (apply, revert, check) and outcome
- Transactions by terminal state, active transactions, rollback steps
- Batches by status, batch items by outcome
- Cache hits, misses, evictions, expirations and size, read at scrape time

# Usage

	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))

	exec := mutation.NewExecutor(fsys, cache, mutation.WithRecorder(metrics))
	registry := service.NewRegistry(service.WithRecorder(metrics))

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
*/
package monitoring
