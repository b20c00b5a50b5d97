package filesystem

import (
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

func basicTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.read",
			Name:        "Read File",
			Description: "Read file contents through the read cache",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.write",
			Name:        "Write File",
			Description: "Create or overwrite a file",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "content", Type: "string", Description: "Data to write", Required: true},
				{Name: "encoding", Type: "string", Description: "utf8 (default) or base64", Required: false},
				{Name: "mode", Type: "string", Description: "Octal permissions, e.g. 0644", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.update",
			Name:        "Update File",
			Description: "Replace the first occurrence of old with new, or the whole content",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Existing file path", Required: true},
				{Name: "old", Type: "string", Description: "Text to replace", Required: false},
				{Name: "new", Type: "string", Description: "Replacement text", Required: false},
				{Name: "content", Type: "string", Description: "New content when old is not given", Required: false},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.delete",
			Name:        "Delete File",
			Description: "Delete a file or empty directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.move",
			Name:        "Move/Rename",
			Description: "Move or rename a file",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Source path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination path", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "filesystem.copy",
			Name:        "Copy",
			Description: "Copy a file",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Source path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination path", Required: true},
			},
			Returns: "boolean",
		},
	}
}

func transactionTools() []types.Tool {
	txID := types.Parameter{Name: "transaction_id", Type: "string", Description: "Transaction ID", Required: true}

	return []types.Tool{
		{
			ID:          "filesystem.transaction.begin",
			Name:        "Begin Transaction",
			Description: "Start a transaction, optionally with its operations",
			Parameters: []types.Parameter{
				{Name: "operations", Type: "array", Description: "Operations to add", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.transaction.add",
			Name:        "Add Operation",
			Description: "Append operations to a pending transaction",
			Parameters: []types.Parameter{
				txID,
				{Name: "operation", Type: "object", Description: "Single operation", Required: false},
				{Name: "operations", Type: "array", Description: "Several operations", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.transaction.commit",
			Name:        "Commit Transaction",
			Description: "Apply every operation in order, rolling back all of them if one fails",
			Parameters:  []types.Parameter{txID},
			Returns:     "object",
		},
		{
			ID:          "filesystem.transaction.rollback",
			Name:        "Discard Transaction",
			Description: "Discard a pending transaction",
			Parameters:  []types.Parameter{txID},
			Returns:     "object",
		},
		{
			ID:          "filesystem.transaction.status",
			Name:        "Transaction Status",
			Description: "Get a transaction's state and per-step progress",
			Parameters:  []types.Parameter{txID},
			Returns:     "object",
		},
		{
			ID:          "filesystem.transaction.list",
			Name:        "List Transactions",
			Description: "List known transactions",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
	}
}

func batchTools() []types.Tool {
	batchID := types.Parameter{Name: "batch_id", Type: "string", Description: "Batch ID", Required: true}

	return []types.Tool{
		{
			ID:          "filesystem.batch.create",
			Name:        "Create Batch",
			Description: "Create a batch from operations or from a glob pattern",
			Parameters: []types.Parameter{
				{Name: "operations", Type: "array", Description: "Operations to run", Required: false},
				{Name: "pattern", Type: "string", Description: "Glob such as docs/**/*.tmp; one operation per match", Required: false},
				{Name: "kind", Type: "string", Description: "Operation kind applied to each match", Required: false},
				{Name: "destination", Type: "string", Description: "Target directory for move/copy per match", Required: false},
				{Name: "concurrency", Type: "number", Description: "Operations run at once (default 5)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.batch.execute",
			Name:        "Execute Batch",
			Description: "Run a pending batch in concurrent chunks",
			Parameters: []types.Parameter{
				batchID,
				{Name: "dry_run", Type: "boolean", Description: "Check operations without applying them", Required: false},
				{Name: "continue_on_error", Type: "boolean", Description: "Keep scheduling chunks after a failure (default true)", Required: false},
			},
			Returns: "object",
		},
		{
			ID:          "filesystem.batch.status",
			Name:        "Batch Status",
			Description: "Get a batch's state and results",
			Parameters:  []types.Parameter{batchID},
			Returns:     "object",
		},
		{
			ID:          "filesystem.batch.list",
			Name:        "List Batches",
			Description: "List known batches",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
	}
}

func cacheTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "filesystem.cache.stats",
			Name:        "Cache Statistics",
			Description: "Hits, misses, evictions and size of the read cache",
			Parameters:  []types.Parameter{},
			Returns:     "object",
		},
		{
			ID:          "filesystem.cache.clear",
			Name:        "Clear Cache",
			Description: "Drop every cached entry",
			Parameters:  []types.Parameter{},
			Returns:     "boolean",
		},
	}
}
