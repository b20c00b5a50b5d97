// Package types provides shared data structures for the service.
//
// This package defines the types that cross the dispatch boundary,
// ensuring every provider speaks the same request/result shape.
//
// Core Types:
//   - Service: Service provider definition
//   - Tool: Service tool specification
//   - Context: Execution context for operations
//   - Result: Standard operation result
//
// Request Types:
//   - ExecuteRequest: Service tool execution
//
// Example Usage:
//
//	result, err := registry.Execute(ctx, "filesystem.write", map[string]interface{}{
//	    "path":    "/notes/todo.txt",
//	    "content": "ship it",
//	}, nil)
package types
