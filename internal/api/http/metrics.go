package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/monitoring"
)

// MetricsSnapshot is the JSON view of the service counters.
type MetricsSnapshot struct {
	Timestamp    time.Time                  `json:"timestamp"`
	Counters     monitoring.MetricsSnapshot `json:"counters"`
	Cache        cache.Stats                `json:"cache"`
	Transactions map[string]int             `json:"transactions"`
	Batches      map[string]int             `json:"batches"`
	Summary      MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// MetricsSummary returns counters, cache statistics and engine state
// counts as JSON. Prometheus scrapes /metrics instead.
func (h *Handlers) MetricsSummary(c *gin.Context) {
	counters := h.metrics.Snapshot()
	stats := h.cache.Stats()

	txStates := make(map[string]int)
	for _, tx := range h.transactions.List() {
		txStates[string(tx.State)]++
	}
	batchStates := make(map[string]int)
	for _, b := range h.batches.List() {
		batchStates[string(b.State)]++
	}

	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp:    time.Now(),
		Counters:     counters,
		Cache:        stats,
		Transactions: txStates,
		Batches:      batchStates,
		Summary:      summarize(counters, stats, h.metrics.UptimeSeconds()),
	})
}

func summarize(counters monitoring.MetricsSnapshot, stats cache.Stats, uptime float64) MetricsSummary {
	var avgLatency float64
	if counters.RequestCount > 0 {
		avgLatency = counters.TotalDuration / float64(counters.RequestCount) * 1000
	}

	var errorRate float64
	if counters.TotalRequests > 0 {
		errorRate = float64(counters.TotalErrors) / float64(counters.TotalRequests)
	}

	var hitRate float64
	if lookups := stats.Hits + stats.Misses; lookups > 0 {
		hitRate = float64(stats.Hits) / float64(lookups)
	}

	return MetricsSummary{
		TotalRequests:    counters.TotalRequests,
		AverageLatencyMs: avgLatency,
		ErrorRate:        errorRate,
		CacheHitRate:     hitRate,
		UptimeSeconds:    uptime,
	}
}
