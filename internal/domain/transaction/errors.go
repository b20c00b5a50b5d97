package transaction

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

var (
	// ErrNotFound is returned for an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidState is returned when an operation is not allowed in the
	// transaction's current state. No I/O is performed.
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrCommitFailed matches every *CommitError.
	ErrCommitFailed = errors.New("transaction commit failed")

	// ErrRollbackFailed matches every *RollbackError.
	ErrRollbackFailed = errors.New("transaction rollback failed")
)

// CommitError reports the step that failed during commit. Every step
// before it was rolled back successfully.
type CommitError struct {
	TxID id.TransactionID
	Step int // 1-based
	Kind mutation.Kind
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("transaction %s: step %d (%s %s) failed: %v", e.TxID, e.Step, e.Kind, e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

func (e *CommitError) Is(target error) bool { return target == ErrCommitFailed }

// RollbackError reports a reversal that failed while rolling back after
// Cause. The filesystem is left partially applied: steps after Step were
// reverted, Step and everything before it were not.
type RollbackError struct {
	TxID  id.TransactionID
	Step  int // 1-based step whose reversal failed
	Kind  mutation.Kind
	Path  string
	Err   error
	Cause *CommitError
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("transaction %s: rollback of step %d (%s %s) failed after step %d failed: %v",
		e.TxID, e.Step, e.Kind, e.Path, e.FailedStep(), e.Err)
}

// Unwrap exposes the reversal error only, so a RollbackError never
// matches ErrCommitFailed.
func (e *RollbackError) Unwrap() error { return e.Err }

func (e *RollbackError) Is(target error) bool { return target == ErrRollbackFailed }

// FailedStep is the commit step whose failure triggered the rollback.
func (e *RollbackError) FailedStep() int {
	if e.Cause == nil {
		return 0
	}
	return e.Cause.Step
}
