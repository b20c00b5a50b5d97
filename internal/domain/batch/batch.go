package batch

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

// DefaultConcurrency is the chunk size used when the caller gives none.
const DefaultConcurrency = 5

var (
	// ErrNotFound is returned for an unknown batch id.
	ErrNotFound = errors.New("batch not found")

	// ErrInvalidState is returned when executing a batch that is not
	// pending.
	ErrInvalidState = errors.New("invalid batch state")

	// ErrInvalidConcurrency is returned for a concurrency below one or
	// above the engine limit.
	ErrInvalidConcurrency = errors.New("invalid concurrency")
)

// State is the lifecycle state of a batch.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether the batch has finished executing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Options controls a single execution.
type Options struct {
	// DryRun checks each operation instead of applying it.
	DryRun bool `json:"dry_run"`

	// StopOnError stops scheduling chunks after the first chunk that
	// contains a failure. Operations in that chunk still all settle.
	StopOnError bool `json:"stop_on_error"`
}

// OperationResult is a successful item.
type OperationResult struct {
	Index     int                 `json:"index"`
	Operation mutation.Descriptor `json:"operation"`
}

// OperationError is a failed item.
type OperationError struct {
	Index     int                 `json:"index"`
	Operation mutation.Descriptor `json:"operation"`
	Error     string              `json:"error"`
	Err       error               `json:"-"`
}

// Result summarizes an execution. Results and Errors are in input order.
type Result struct {
	TotalOperations int               `json:"total_operations"`
	Successful      int               `json:"successful"`
	Failed          int               `json:"failed"`
	Skipped         int               `json:"skipped"`
	Results         []OperationResult `json:"results"`
	Errors          []OperationError  `json:"errors"`
	Status          State             `json:"status"`
	DryRun          bool              `json:"dry_run"`
	Duration        time.Duration     `json:"duration"`
}

// Batch is a read-only view of a batch.
type Batch struct {
	ID          id.BatchID            `json:"id"`
	Operations  []mutation.Descriptor `json:"operations"`
	Concurrency int                   `json:"concurrency"`
	State       State                 `json:"state"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Result      *Result               `json:"result,omitempty"`
}

func (b Batch) clone() Batch {
	out := b
	out.Operations = make([]mutation.Descriptor, len(b.Operations))
	copy(out.Operations, b.Operations)
	return out
}
