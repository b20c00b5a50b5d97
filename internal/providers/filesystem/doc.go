// Package filesystem exposes the mutation, transaction, batch and cache
// engines as named tools.
//
// Tool groups:
//   - filesystem.{read,write,update,delete,move,copy}: single operations
//   - filesystem.transaction.*: all-or-nothing sequences with rollback
//   - filesystem.batch.*: independent operations run in concurrent chunks
//   - filesystem.cache.*: read cache statistics and reset
//
// Paths are resolved against the caller's app sandbox when an app context
// is present. Failures come back as a Result with Success false and an
// error_code in Data; a failed commit also reports the 1-based step.
//
// Example:
//
//	result, err := provider.Execute(ctx, "filesystem.transaction.commit",
//		map[string]interface{}{"transaction_id": txID}, nil)
package filesystem
