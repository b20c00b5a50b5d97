package transaction

import (
	"time"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

// State is the lifecycle state of a transaction.
type State string

const (
	StatePending     State = "pending"
	StateCommitting  State = "committing"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling_back"
	StateRolledBack  State = "rolled_back"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}

// Operation is one step of a transaction.
type Operation struct {
	Descriptor mutation.Descriptor `json:"descriptor"`
	Applied    bool                `json:"applied"`
	Reverted   bool                `json:"reverted"`
}

// Transaction is a read-only view of a transaction.
type Transaction struct {
	ID         id.TransactionID `json:"id"`
	State      State            `json:"state"`
	Operations []Operation      `json:"operations"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Error      string           `json:"error,omitempty"`
	FailedStep int              `json:"failed_step,omitempty"`
}

func (t Transaction) clone() Transaction {
	out := t
	out.Operations = make([]Operation, len(t.Operations))
	copy(out.Operations, t.Operations)
	return out
}
