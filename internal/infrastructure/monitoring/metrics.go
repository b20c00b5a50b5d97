package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fsorch"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	// Mutation metrics
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec

	// Transaction metrics
	Transactions       *prometheus.CounterVec
	TransactionsActive prometheus.Gauge
	RollbackSteps      *prometheus.CounterVec

	// Batch metrics
	Batches       *prometheus.CounterVec
	BatchItems    *prometheus.CounterVec
	BatchDuration prometheus.Histogram

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	registerer prometheus.Registerer

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalDuration float64 `json:"total_duration_seconds"`
	RequestCount  int64   `json:"request_count"`
	Mutations     int64   `json:"mutations"`
	Commits       int64   `json:"commits"`
	Rollbacks     int64   `json:"rollbacks"`
	Batches       int64   `json:"batches"`
}

// NewMetrics creates a new metrics collector registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers every collector on reg. Tests pass a fresh
// prometheus.NewRegistry() so collectors can be built more than once.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime:  time.Now(),
		registerer: reg,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Tool metrics
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "tool"},
		),

		// Mutation metrics
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Mutations applied, reverted or checked, by kind and outcome",
			},
			[]string{"kind", "phase", "status"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_duration_seconds",
				Help:      "Primitive duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"kind", "phase"},
		),

		// Transaction metrics
		Transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Transactions that reached a terminal state",
			},
			[]string{"state"},
		),
		TransactionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transactions_active",
				Help:      "Transactions currently pending or in flight",
			},
		),
		RollbackSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollback_steps_total",
				Help:      "Reversal steps executed during rollback",
			},
			[]string{"status"},
		),

		// Batch metrics
		Batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Executed batches by final status",
			},
			[]string{"status", "dry_run"},
		),
		BatchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_items_total",
				Help:      "Batch items by outcome",
			},
			[]string{"status"},
		),
		BatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Batch execution duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(.001, 4, 10),
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// CacheStats is the subset of cache counters exported as metrics.
type CacheStats struct {
	Hits, Misses, Evictions, Expirations uint64
	Size, Capacity                       int
}

// ObserveCache exports cache counters read from stats at scrape time.
func (m *Metrics) ObserveCache(stats func() CacheStats) {
	factory := promauto.With(m.registerer)
	counter := func(name, help string, pick func(CacheStats) uint64) {
		factory.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "cache", Name: name, Help: help},
			func() float64 { return float64(pick(stats())) },
		)
	}
	counter("hits_total", "Cache hits", func(s CacheStats) uint64 { return s.Hits })
	counter("misses_total", "Cache misses", func(s CacheStats) uint64 { return s.Misses })
	counter("evictions_total", "LRU evictions", func(s CacheStats) uint64 { return s.Evictions })
	counter("expirations_total", "TTL expirations", func(s CacheStats) uint64 { return s.Expirations })

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Subsystem: "cache", Name: "entries", Help: "Cached entries"},
		func() float64 { return float64(stats().Size) },
	)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordToolCall records a dispatched tool call
func (m *Metrics) RecordToolCall(service, tool, status string, duration time.Duration) {
	m.ToolCalls.WithLabelValues(service, tool, status).Inc()
	m.ToolDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// RecordMutation records one primitive run. phase is apply, revert or check.
func (m *Metrics) RecordMutation(kind, phase string, err error, duration time.Duration) {
	m.Mutations.WithLabelValues(kind, phase, statusOf(err)).Inc()
	m.MutationDuration.WithLabelValues(kind, phase).Observe(duration.Seconds())

	if phase == "apply" {
		m.mu.Lock()
		m.snapshot.Mutations++
		m.mu.Unlock()
	}
}

// TransactionStarted tracks a newly created transaction.
func (m *Metrics) TransactionStarted() {
	m.TransactionsActive.Inc()
}

// TransactionFinished records a transaction reaching a terminal state.
func (m *Metrics) TransactionFinished(state string) {
	m.TransactionsActive.Dec()
	m.Transactions.WithLabelValues(state).Inc()

	m.mu.Lock()
	switch state {
	case "committed":
		m.snapshot.Commits++
	default:
		m.snapshot.Rollbacks++
	}
	m.mu.Unlock()
}

// RecordRollbackStep records one reversal during rollback.
func (m *Metrics) RecordRollbackStep(err error) {
	m.RollbackSteps.WithLabelValues(statusOf(err)).Inc()
}

// RecordBatch records a finished batch execution.
func (m *Metrics) RecordBatch(status string, dryRun bool, successful, failed, skipped int, duration time.Duration) {
	dry := "false"
	if dryRun {
		dry = "true"
	}
	m.Batches.WithLabelValues(status, dry).Inc()
	m.BatchItems.WithLabelValues("success").Add(float64(successful))
	m.BatchItems.WithLabelValues("error").Add(float64(failed))
	m.BatchItems.WithLabelValues("skipped").Add(float64(skipped))
	m.BatchDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Batches++
	m.mu.Unlock()
}

// Snapshot returns the counters kept for the JSON API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// UptimeSeconds returns the time since the collectors were created.
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
