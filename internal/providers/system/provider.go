package system

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

// ServiceID is the prefix of every tool this provider serves.
const ServiceID = "system"

// Info describes the running instance.
type Info struct {
	StorageBackend     string `json:"storage_backend"`
	StorageRoot        string `json:"storage_root,omitempty"`
	CacheCapacity      int    `json:"cache_capacity"`
	DefaultConcurrency int    `json:"default_concurrency"`
	MaxConcurrency     int    `json:"max_concurrency"`
}

// Call is one recorded tool call.
type Call struct {
	Timestamp  time.Time `json:"timestamp"`
	Service    string    `json:"service"`
	Tool       string    `json:"tool"`
	Status     string    `json:"status"`
	DurationMs float64   `json:"duration_ms"`
}

// Provider reports instance information and recent tool activity.
type Provider struct {
	info      Info
	startTime time.Time
	calls     *ring
	now       func() time.Time
}

// ring is a fixed-size buffer of the most recent calls.
type ring struct {
	entries []Call
	head    int
	size    int
	mu      sync.RWMutex
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{entries: make([]Call, capacity)}
}

func (r *ring) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.head] = c
	r.head = (r.head + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// recent returns up to limit calls, newest first, optionally filtered by
// status.
func (r *ring) recent(limit int, status string) []Call {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Call, 0, min(limit, r.size))
	for i := 0; i < r.size && len(out) < limit; i++ {
		c := r.entries[(r.head-1-i+len(r.entries))%len(r.entries)]
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// NewProvider creates a system provider that keeps the last capacity
// tool calls.
func NewProvider(info Info, capacity int) *Provider {
	return &Provider{
		info:      info,
		startTime: time.Now(),
		calls:     newRing(capacity),
		now:       time.Now,
	}
}

// RecordToolCall remembers a finished call. Calls to this provider's own
// tools are not recorded.
func (s *Provider) RecordToolCall(service, tool, status string, d time.Duration) {
	if service == ServiceID {
		return
	}
	s.calls.add(Call{
		Timestamp:  s.now(),
		Service:    service,
		Tool:       tool,
		Status:     status,
		DurationMs: float64(d.Microseconds()) / 1000,
	})
}

// Definition returns service metadata
func (s *Provider) Definition() types.Service {
	return types.Service{
		ID:          ServiceID,
		Name:        "System Service",
		Description: "Instance information and recent tool activity",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"info",
			"activity",
		},
		Tools: []types.Tool{
			{
				ID:          "system.info",
				Name:        "System Info",
				Description: "Runtime, storage and limit settings of this instance",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.activity",
				Name:        "Recent Activity",
				Description: "Most recent tool calls, newest first",
				Parameters: []types.Parameter{
					{Name: "limit", Type: "number", Description: "Number of calls to return (default 50)", Required: false},
					{Name: "status", Type: "string", Description: "Filter by success, failure or error", Required: false},
				},
				Returns: "array",
			},
			{
				ID:          "system.ping",
				Name:        "Ping",
				Description: "Test service availability",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a system operation
func (s *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "system.info":
		return s.describe()
	case "system.activity":
		return s.activity(params)
	case "system.ping":
		return success(map[string]interface{}{
			"pong":      true,
			"timestamp": s.now().Unix(),
		})
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (s *Provider) describe() (*types.Result, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return success(map[string]interface{}{
		"instance":       s.info,
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_alloc":   m.Alloc / 1024 / 1024, // MB
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *Provider) activity(params map[string]interface{}) (*types.Result, error) {
	limit := 50
	if l, ok := params["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	status, _ := params["status"].(string)

	calls := s.calls.recent(limit, status)
	return success(map[string]interface{}{
		"calls": calls,
		"count": len(calls),
	})
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
