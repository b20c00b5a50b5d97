package filesystem

import (
	"context"
	"fmt"
	"path"

	"github.com/GriffinCanCode/fsorch/internal/domain/batch"
	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

func parseBatchID(params map[string]interface{}) (id.BatchID, error) {
	raw, ok := stringParam(params, "batch_id")
	if !ok {
		return "", fmt.Errorf("batch_id parameter required")
	}
	if err := utils.ValidateID(raw, "batch_id", true); err != nil {
		return "", err
	}
	return id.BatchID(raw), nil
}

func (p *Provider) batchCreate(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	concurrency, err := intParam(params, "concurrency", p.defaultConcurrency)
	if err != nil {
		return invalidParams(err.Error())
	}

	var ops []mutation.Descriptor
	if pattern, ok := stringParam(params, "pattern"); ok {
		ops, err = p.expandPattern(ctx, pattern, params, appCtx)
	} else {
		ops, err = parseDescriptors(params, appCtx)
	}
	if err != nil {
		return errorResult(err)
	}

	batchID, err := p.batches.Create(ops, concurrency)
	if err != nil {
		return errorResult(err)
	}

	return Success(map[string]interface{}{
		"batch_id":         batchID.String(),
		"total_operations": len(ops),
		"concurrency":      concurrency,
		"state":            string(batch.StatePending),
	})
}

// expandPattern builds one operation per file matching pattern. The other
// parameters form a template; for move and copy, destination names a
// directory that receives each match under its base name.
func (p *Provider) expandPattern(ctx context.Context, pattern string, params map[string]interface{}, appCtx *types.Context) ([]mutation.Descriptor, error) {
	if p.globber == nil {
		return nil, fmt.Errorf("%w: pattern expansion is not available", mutation.ErrInvalidDescriptor)
	}

	kind, _ := params["kind"].(string)
	if !mutation.Kind(kind).Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", mutation.ErrInvalidDescriptor, kind)
	}

	resolved, err := resolvePath(pattern, appCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mutation.ErrInvalidDescriptor, err)
	}
	matches, err := p.globber.Glob(ctx, resolved)
	if err != nil {
		return nil, err
	}
	if len(matches) > utils.MaxBatchOperations {
		return nil, fmt.Errorf("%w: pattern matched %d files, at most %d allowed",
			mutation.ErrInvalidDescriptor, len(matches), utils.MaxBatchOperations)
	}

	dest, _ := stringParam(params, "destination")
	ops := make([]mutation.Descriptor, 0, len(matches))
	for _, match := range matches {
		op := make(map[string]interface{}, len(params))
		for k, v := range params {
			op[k] = v
		}
		delete(op, "pattern")
		op["path"] = match
		if dest != "" {
			op["destination"] = path.Join(dest, path.Base(match))
		}

		d, err := parseDescriptor(op, appCtx)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", match, err)
		}
		ops = append(ops, d)
	}
	return ops, nil
}

func (p *Provider) batchExecute(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	batchID, err := parseBatchID(params)
	if err != nil {
		return invalidParams(err.Error())
	}

	opts := batch.Options{DryRun: boolParam(params, "dry_run")}
	if _, ok := params["continue_on_error"]; ok {
		opts.StopOnError = !boolParam(params, "continue_on_error")
	}

	result, err := p.batches.Execute(ctx, batchID, opts)
	if err != nil {
		return errorResult(err)
	}

	// Item failures are part of the result, not a tool failure.
	return Success(map[string]interface{}{
		"batch_id": batchID.String(),
		"result":   result,
		"status":   string(result.Status),
	})
}

func (p *Provider) batchStatus(params map[string]interface{}) (*types.Result, error) {
	batchID, err := parseBatchID(params)
	if err != nil {
		return invalidParams(err.Error())
	}

	b, err := p.batches.Status(batchID)
	if err != nil {
		return errorResult(err)
	}
	return Success(map[string]interface{}{"batch": b})
}

func (p *Provider) batchList() (*types.Result, error) {
	list := p.batches.List()
	return Success(map[string]interface{}{
		"batches": list,
		"count":   len(list),
	})
}
