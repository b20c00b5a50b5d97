package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

// Executor applies or checks single mutations.
type Executor interface {
	Apply(ctx context.Context, d mutation.Descriptor) error
	Check(ctx context.Context, d mutation.Descriptor) error
}

// Recorder receives one observation per finished execution.
type Recorder interface {
	RecordBatch(status string, dryRun bool, successful, failed, skipped int, duration time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMaxConcurrency caps the concurrency accepted by Create.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) { e.maxConcurrency = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type record struct {
	mu    sync.RWMutex
	batch Batch
}

// Engine owns the batch table.
type Engine struct {
	exec           Executor
	log            *logging.Logger
	recorder       Recorder
	maxConcurrency int
	now            func() time.Time

	mu      sync.RWMutex
	batches map[id.BatchID]*record
}

// NewEngine creates a batch engine running items through exec.
func NewEngine(exec Executor, opts ...Option) *Engine {
	e := &Engine{
		exec:    exec,
		log:     logging.NewNop(),
		now:     time.Now,
		batches: make(map[id.BatchID]*record),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("batch")
	return e
}

// Create stores a pending batch of ops run concurrency at a time.
func (e *Engine) Create(ops []mutation.Descriptor, concurrency int) (id.BatchID, error) {
	if concurrency < 1 {
		return "", fmt.Errorf("%w: %d, must be at least 1", ErrInvalidConcurrency, concurrency)
	}
	if e.maxConcurrency > 0 && concurrency > e.maxConcurrency {
		return "", fmt.Errorf("%w: %d exceeds limit %d", ErrInvalidConcurrency, concurrency, e.maxConcurrency)
	}
	for i, d := range ops {
		if err := d.Validate(); err != nil {
			return "", fmt.Errorf("operation %d: %w", i, err)
		}
	}

	batchID := id.NewBatchID()
	now := e.now()
	stored := make([]mutation.Descriptor, len(ops))
	copy(stored, ops)

	e.mu.Lock()
	e.batches[batchID] = &record{batch: Batch{
		ID:          batchID,
		Operations:  stored,
		Concurrency: concurrency,
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
	e.mu.Unlock()

	e.log.Debug("batch created",
		logging.BatchID(batchID),
		zap.Int("operations", len(ops)),
		zap.Int("concurrency", concurrency),
	)
	return batchID, nil
}

func (e *Engine) get(batchID id.BatchID) (*record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	return rec, nil
}

// Execute runs a pending batch in chunks of its concurrency. Chunks run one
// after another; every item in a chunk runs concurrently and the chunk
// finishes only when all of them settle. Item failures are collected in the
// Result, never returned as the error.
//
// A cancelled ctx stops scheduling further chunks; their items are
// recorded as failed with the context error.
func (e *Engine) Execute(ctx context.Context, batchID id.BatchID, opts Options) (*Result, error) {
	rec, err := e.get(batchID)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	if rec.batch.State != StatePending {
		state := rec.batch.State
		rec.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot execute %s batch %s", ErrInvalidState, state, batchID)
	}
	rec.batch.State = StateRunning
	rec.batch.UpdatedAt = e.now()
	ops := rec.batch.Operations
	size := rec.batch.Concurrency
	rec.mu.Unlock()

	start := time.Now()
	outcomes, scheduled := e.run(ctx, ops, size, opts)
	result := collect(ops, outcomes, scheduled, opts.DryRun)
	result.Duration = time.Since(start)

	rec.mu.Lock()
	rec.batch.State = result.Status
	rec.batch.Result = result
	rec.batch.UpdatedAt = e.now()
	rec.mu.Unlock()

	if e.recorder != nil {
		e.recorder.RecordBatch(string(result.Status), opts.DryRun, result.Successful, result.Failed, result.Skipped, result.Duration)
	}
	e.log.Info("batch executed",
		logging.BatchID(batchID),
		zap.String("status", string(result.Status)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// run executes ops chunk by chunk and returns one outcome per item plus
// the number of items that received an outcome.
func (e *Engine) run(ctx context.Context, ops []mutation.Descriptor, size int, opts Options) ([]error, int) {
	outcomes := make([]error, len(ops))

	for start := 0; start < len(ops); start += size {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(ops); i++ {
				outcomes[i] = err
			}
			return outcomes, len(ops)
		}

		end := min(start+size, len(ops))

		// No WithContext: one failing item must not cancel its siblings, so
		// item errors land in outcomes and Go always reports nil.
		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			g.Go(func() error {
				outcomes[i] = e.one(ctx, ops[i], opts.DryRun)
				return nil
			})
		}
		g.Wait()

		if opts.StopOnError && anyFailed(outcomes[start:end]) {
			return outcomes, end
		}
	}
	return outcomes, len(ops)
}

func (e *Engine) one(ctx context.Context, d mutation.Descriptor, dryRun bool) error {
	if dryRun {
		return e.exec.Check(ctx, d)
	}
	return e.exec.Apply(ctx, d)
}

func anyFailed(outcomes []error) bool {
	for _, err := range outcomes {
		if err != nil {
			return true
		}
	}
	return false
}

func collect(ops []mutation.Descriptor, outcomes []error, scheduled int, dryRun bool) *Result {
	result := &Result{
		TotalOperations: len(ops),
		Skipped:         len(ops) - scheduled,
		Results:         []OperationResult{},
		Errors:          []OperationError{},
		DryRun:          dryRun,
	}

	for i := 0; i < scheduled; i++ {
		if err := outcomes[i]; err != nil {
			result.Errors = append(result.Errors, OperationError{
				Index:     i,
				Operation: ops[i],
				Error:     err.Error(),
				Err:       err,
			})
			continue
		}
		result.Results = append(result.Results, OperationResult{Index: i, Operation: ops[i]})
	}

	result.Successful = len(result.Results)
	result.Failed = len(result.Errors)
	result.Status = StateCompleted
	if result.Failed > 0 {
		result.Status = StateFailed
	}
	return result
}

// Status returns a copy of the batch.
func (e *Engine) Status(batchID id.BatchID) (Batch, error) {
	rec, err := e.get(batchID)
	if err != nil {
		return Batch{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.batch.clone(), nil
}

// List returns copies of every batch in creation order.
func (e *Engine) List() []Batch {
	e.mu.RLock()
	recs := make([]*record, 0, len(e.batches))
	for _, rec := range e.batches {
		recs = append(recs, rec)
	}
	e.mu.RUnlock()

	out := make([]Batch, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		out = append(out, rec.batch.clone())
		rec.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Prune removes finished batches last updated more than olderThan ago.
func (e *Engine) Prune(olderThan time.Duration) int {
	cutoff := e.now().Add(-olderThan)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for batchID, rec := range e.batches {
		rec.mu.RLock()
		stale := rec.batch.State.Terminal() && rec.batch.UpdatedAt.Before(cutoff)
		rec.mu.RUnlock()
		if stale {
			delete(e.batches, batchID)
			removed++
		}
	}
	return removed
}
