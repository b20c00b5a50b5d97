// Package http serves the tool API over gin.
//
// Routes:
//   - GET  /health, GET /
//   - GET  /services, POST /services/discover, POST /services/execute
//   - GET  /transactions, GET /transactions/:id
//   - GET  /batches, GET /batches/:id
//   - GET  /metrics/summary
//
// POST /services/execute takes {"tool_id", "params", "app_id"} and answers
// with the tool's Result. A tool that fails still answers 200 with
// success false; 4xx and 5xx are reserved for bad requests, unknown
// services and provider faults.
package http
