package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

var (
	// ErrInvalidToolID is returned for a tool id without a service prefix.
	ErrInvalidToolID = errors.New("invalid tool ID format")

	// ErrServiceNotFound is returned when no provider owns the prefix.
	ErrServiceNotFound = errors.New("service not found")

	// ErrDuplicateService is returned when registering an id twice.
	ErrDuplicateService = errors.New("service already registered")
)

// Tool call outcomes reported to the Recorder.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
)

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Recorder observes tool calls.
type Recorder interface {
	RecordToolCall(service, tool, status string, d time.Duration)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithRecorder reports every tool call to rec. It may be given more
// than once.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorders = append(r.recorders, rec) }
}

// WithTracer opens a span per tool call.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// Registry routes tool calls to providers by service id.
type Registry struct {
	services sync.Map

	log       *logging.Logger
	recorders []Recorder
	tracer    *tracing.Tracer
}

// NewRegistry creates a new service registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{log: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("registry")
	return r
}

// Register adds a service provider
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}
	if _, loaded := r.services.LoadOrStore(def.ID, provider); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateService, def.ID)
	}

	r.log.Info("service registered",
		zap.String("service", def.ID),
		zap.Int("tools", len(def.Tools)),
	)
	return nil
}

// Unregister removes a service provider
func (r *Registry) Unregister(serviceID string) {
	r.services.Delete(serviceID)
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	val, ok := r.services.Load(serviceID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns registered services ordered by id, optionally filtered by
// category.
func (r *Registry) List(category *types.Category) []types.Service {
	var services []types.Service
	r.services.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		if category == nil || def.Category == *category {
			services = append(services, def)
		}
		return true
	})
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services
}

// Discover finds relevant services for a free-text query such as
// "move files in a transaction".
func (r *Registry) Discover(query string, limit int) []types.Service {
	type scored struct {
		service types.Service
		score   float64
	}

	query = strings.ToLower(query)
	var results []scored
	r.services.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		if score := relevance(query, def); score > 0 {
			results = append(results, scored{service: def, score: score})
		}
		return true
	})

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].service.ID < results[j].service.ID
	})

	output := make([]types.Service, 0, min(limit, len(results)))
	for i := 0; i < len(results) && i < limit; i++ {
		output = append(output, results[i].service)
	}
	return output
}

// Execute runs a service tool. The service is the tool id up to the first
// dot. A provider's own failures come back in the Result; the error is
// reserved for routing problems and provider faults.
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	serviceID, _, ok := strings.Cut(toolID, ".")
	if !ok || serviceID == "" {
		return failed(ErrInvalidToolID.Error()), fmt.Errorf("%w: %s", ErrInvalidToolID, toolID)
	}

	provider, ok := r.Get(serviceID)
	if !ok {
		msg := fmt.Sprintf("%s: %s", ErrServiceNotFound, serviceID)
		return failed(msg), fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}

	if r.tracer != nil {
		var span *tracing.Span
		span, ctx = r.tracer.StartSpan(ctx, toolID)
		defer r.tracer.Finish(span)
		span.SetTag("service", serviceID)
	}

	start := time.Now()
	result, err := provider.Execute(ctx, toolID, params, appCtx)
	elapsed := time.Since(start)

	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusError
		r.log.Error("tool execution error",
			zap.String("tool", toolID),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	case result == nil || !result.Success:
		status = StatusFailure
	}
	for _, rec := range r.recorders {
		rec.RecordToolCall(serviceID, toolID, status, elapsed)
	}

	r.log.Debug("tool executed",
		zap.String("tool", toolID),
		zap.String("status", status),
		zap.Duration("duration", elapsed),
	)
	return result, err
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	var total, totalTools int
	categories := make(map[string]int)

	r.services.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		total++
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
		return true
	})

	return map[string]interface{}{
		"total_services": total,
		"total_tools":    totalTools,
		"categories":     categories,
	}
}

func relevance(query string, svc types.Service) float64 {
	score := 0.0

	if strings.Contains(query, svc.ID) || strings.Contains(query, strings.ToLower(svc.Name)) {
		score += 10.0
	}

	for _, word := range strings.Fields(strings.ToLower(svc.Description)) {
		if len(word) > 3 && strings.Contains(query, word) {
			score += 5.0
		}
	}

	for _, c := range svc.Capabilities {
		if strings.Contains(query, strings.ReplaceAll(strings.ToLower(c), "_", " ")) {
			score += 3.0
		}
	}

	for _, tool := range svc.Tools {
		if strings.Contains(query, strings.ToLower(tool.Name)) {
			score += 1.0
		}
	}

	if strings.Contains(query, string(svc.Category)) {
		score += 2.0
	}
	return score
}

func failed(msg string) *types.Result {
	return &types.Result{Success: false, Error: &msg}
}
