package filesystem

import (
	"context"
	"errors"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/fsorch/internal/domain/batch"
	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/domain/transaction"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/storage"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

// Error codes reported in Result.Data["error_code"].
const (
	CodeInvalidParams      = "invalid_params"
	CodeInvalidDescriptor  = "invalid_descriptor"
	CodeInvalidConcurrency = "invalid_concurrency"
	CodeInvalidState       = "invalid_state"
	CodeNotFound           = "not_found"
	CodeCommitFailed       = "commit_failed"
	CodeRollbackFailed     = "rollback_failed"
	CodeIO                 = "io_error"
	CodeCanceled           = "canceled"
)

// errorResult converts an engine or storage error into a failed Result
// with enough detail for the caller to retry, abandon or reconcile.
func errorResult(err error) (*types.Result, error) {
	data := map[string]interface{}{}

	var rbErr *transaction.RollbackError
	var commitErr *transaction.CommitError
	var pathErr *storage.PathError

	switch {
	case errors.As(err, &rbErr):
		data["error_code"] = CodeRollbackFailed
		data["transaction_id"] = rbErr.TxID.String()
		data["step"] = rbErr.Step
		data["failed_step"] = rbErr.FailedStep()
		data["kind"] = string(rbErr.Kind)
		data["path"] = rbErr.Path
		data["io_kind"] = string(storage.KindOf(rbErr.Err))
	case errors.As(err, &commitErr):
		data["error_code"] = CodeCommitFailed
		data["transaction_id"] = commitErr.TxID.String()
		data["step"] = commitErr.Step
		data["kind"] = string(commitErr.Kind)
		data["path"] = commitErr.Path
		data["io_kind"] = string(storage.KindOf(commitErr.Err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		data["error_code"] = CodeCanceled
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, batch.ErrNotFound):
		data["error_code"] = CodeNotFound
	case errors.Is(err, transaction.ErrInvalidState), errors.Is(err, batch.ErrInvalidState):
		data["error_code"] = CodeInvalidState
	case errors.Is(err, batch.ErrInvalidConcurrency):
		data["error_code"] = CodeInvalidConcurrency
	case errors.Is(err, mutation.ErrInvalidDescriptor):
		data["error_code"] = CodeInvalidDescriptor
	case errors.Is(err, doublestar.ErrBadPattern):
		data["error_code"] = CodeInvalidParams
	case errors.As(err, &pathErr):
		data["error_code"] = CodeIO
		data["io_kind"] = string(pathErr.Kind())
		data["path"] = pathErr.Path
		data["op"] = pathErr.Op
	default:
		data["error_code"] = CodeIO
		data["io_kind"] = string(storage.KindOf(err))
	}

	return FailureWith(err.Error(), data)
}

// invalidParams reports a malformed argument bag.
func invalidParams(message string) (*types.Result, error) {
	return FailureWith(message, map[string]interface{}{"error_code": CodeInvalidParams})
}
