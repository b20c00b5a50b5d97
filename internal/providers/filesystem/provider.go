package filesystem

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/domain/batch"
	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/domain/transaction"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

// ServiceID is the prefix of every tool this provider serves.
const ServiceID = "filesystem"

// Globber expands a doublestar pattern into matching file paths.
type Globber interface {
	Glob(ctx context.Context, pattern string) ([]string, error)
}

// Config wires the provider to the engines it fronts.
type Config struct {
	Executor     *mutation.Executor
	Transactions *transaction.Engine
	Batches      *batch.Engine
	Cache        *cache.OperationCache

	// Globber enables pattern-based batch creation. Optional.
	Globber Globber

	Logger *logging.Logger

	// DefaultConcurrency applies when batch.create is called without one.
	DefaultConcurrency int
}

// Provider exposes the filesystem engines as named tools.
type Provider struct {
	exec               *mutation.Executor
	txs                *transaction.Engine
	batches            *batch.Engine
	cache              *cache.OperationCache
	globber            Globber
	hasher             *utils.Hasher
	log                *logging.Logger
	defaultConcurrency int
}

// NewProvider creates a filesystem provider
func NewProvider(cfg Config) *Provider {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	concurrency := cfg.DefaultConcurrency
	if concurrency < 1 {
		concurrency = batch.DefaultConcurrency
	}
	return &Provider{
		exec:               cfg.Executor,
		txs:                cfg.Transactions,
		batches:            cfg.Batches,
		cache:              cfg.Cache,
		globber:            cfg.Globber,
		hasher:             utils.DefaultHasher(),
		log:                log.Named("filesystem"),
		defaultConcurrency: concurrency,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	tools := basicTools()
	tools = append(tools, transactionTools()...)
	tools = append(tools, batchTools()...)
	tools = append(tools, cacheTools()...)

	return types.Service{
		ID:          ServiceID,
		Name:        "Filesystem Service",
		Description: "Transactional and batched file mutations with a coherent read cache",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"read",
			"write",
			"update",
			"delete",
			"move",
			"copy",
			"transaction",
			"batch",
		},
		Tools: tools,
		DataModels: []types.DataModel{
			{
				Name: "Operation",
				Fields: map[string]string{
					"kind":        "write | update | delete | move | copy",
					"path":        "string",
					"destination": "string (move, copy)",
					"content":     "string (write, update)",
					"encoding":    "utf8 | base64",
					"old":         "string (update)",
					"new":         "string (update)",
					"mode":        "octal string or number (write)",
				},
			},
		},
	}
}

// Execute runs a filesystem tool
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	start := time.Now()
	result, err := p.dispatch(ctx, toolID, params, appCtx)
	if result != nil && !result.Success && result.Error != nil {
		p.log.Debug("tool failed",
			zap.String("tool", toolID),
			zap.String("error", *result.Error),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return result, err
}

func (p *Provider) dispatch(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	// Direct mutations
	case "filesystem.read":
		return p.read(ctx, params, appCtx)
	case "filesystem.write":
		return p.mutate(ctx, mutation.KindWrite, params, appCtx)
	case "filesystem.update":
		return p.mutate(ctx, mutation.KindUpdate, params, appCtx)
	case "filesystem.delete":
		return p.mutate(ctx, mutation.KindDelete, params, appCtx)
	case "filesystem.move":
		return p.mutate(ctx, mutation.KindMove, params, appCtx)
	case "filesystem.copy":
		return p.mutate(ctx, mutation.KindCopy, params, appCtx)

	// Transactions
	case "filesystem.transaction.begin":
		return p.txBegin(ctx, params, appCtx)
	case "filesystem.transaction.add":
		return p.txAdd(params, appCtx)
	case "filesystem.transaction.commit":
		return p.txCommit(ctx, params)
	case "filesystem.transaction.rollback":
		return p.txRollback(ctx, params)
	case "filesystem.transaction.status":
		return p.txStatus(params)
	case "filesystem.transaction.list":
		return p.txList()

	// Batches
	case "filesystem.batch.create":
		return p.batchCreate(ctx, params, appCtx)
	case "filesystem.batch.execute":
		return p.batchExecute(ctx, params)
	case "filesystem.batch.status":
		return p.batchStatus(params)
	case "filesystem.batch.list":
		return p.batchList()

	// Cache
	case "filesystem.cache.stats":
		return p.cacheStats()
	case "filesystem.cache.clear":
		return p.cacheClear()

	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}
