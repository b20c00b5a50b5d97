package filesystem

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/domain/transaction"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

func parseTransactionID(params map[string]interface{}) (id.TransactionID, error) {
	raw, ok := stringParam(params, "transaction_id")
	if !ok {
		return "", fmt.Errorf("transaction_id parameter required")
	}
	if err := utils.ValidateID(raw, "transaction_id", true); err != nil {
		return "", err
	}
	return id.TransactionID(raw), nil
}

// operationsParam accepts either a single "operation" object or an
// "operations" array.
func operationsParam(params map[string]interface{}, appCtx *types.Context) ([]mutation.Descriptor, error) {
	if op, ok := params["operation"].(map[string]interface{}); ok {
		d, err := parseDescriptor(op, appCtx)
		if err != nil {
			return nil, err
		}
		return []mutation.Descriptor{d}, nil
	}
	if _, ok := params["operations"]; !ok {
		return nil, nil
	}
	return parseDescriptors(params, appCtx)
}

func (p *Provider) txBegin(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	ops, err := operationsParam(params, appCtx)
	if err != nil {
		return errorResult(err)
	}

	txID := p.txs.Create()
	for _, d := range ops {
		if err := p.txs.AddOperation(txID, d); err != nil {
			// Pending, so discarding touches nothing on disk.
			if rbErr := p.txs.Rollback(ctx, txID); rbErr != nil {
				p.log.Warn("discard after failed begin", zap.String("tx", txID.String()), zap.Error(rbErr))
			}
			return errorResult(err)
		}
	}

	return Success(map[string]interface{}{
		"transaction_id": txID.String(),
		"state":          string(transaction.StatePending),
		"operations":     len(ops),
	})
}

func (p *Provider) txAdd(params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	txID, err := parseTransactionID(params)
	if err != nil {
		return invalidParams(err.Error())
	}
	ops, err := operationsParam(params, appCtx)
	if err != nil {
		return errorResult(err)
	}
	if len(ops) == 0 {
		return invalidParams("operation or operations parameter required")
	}

	for _, d := range ops {
		if err := p.txs.AddOperation(txID, d); err != nil {
			return errorResult(err)
		}
	}

	tx, err := p.txs.Status(txID)
	if err != nil {
		return errorResult(err)
	}
	return Success(map[string]interface{}{
		"transaction_id": txID.String(),
		"added":          len(ops),
		"operations":     len(tx.Operations),
	})
}

func (p *Provider) txCommit(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	txID, err := parseTransactionID(params)
	if err != nil {
		return invalidParams(err.Error())
	}

	if err := p.txs.Commit(ctx, txID); err != nil {
		return errorResult(err)
	}

	tx, err := p.txs.Status(txID)
	if err != nil {
		return errorResult(err)
	}
	return Success(map[string]interface{}{
		"transaction_id": txID.String(),
		"state":          string(tx.State),
		"operations":     len(tx.Operations),
	})
}

func (p *Provider) txRollback(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	txID, err := parseTransactionID(params)
	if err != nil {
		return invalidParams(err.Error())
	}

	if err := p.txs.Rollback(ctx, txID); err != nil {
		return errorResult(err)
	}
	return Success(map[string]interface{}{
		"transaction_id": txID.String(),
		"state":          string(transaction.StateRolledBack),
	})
}

func (p *Provider) txStatus(params map[string]interface{}) (*types.Result, error) {
	txID, err := parseTransactionID(params)
	if err != nil {
		return invalidParams(err.Error())
	}

	tx, err := p.txs.Status(txID)
	if err != nil {
		return errorResult(err)
	}
	return Success(map[string]interface{}{"transaction": tx})
}

func (p *Provider) txList() (*types.Result, error) {
	list := p.txs.List()
	return Success(map[string]interface{}{
		"transactions": list,
		"count":        len(list),
	})
}
