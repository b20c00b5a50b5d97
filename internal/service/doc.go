// Package service routes tool calls to the providers that own them.
//
// A tool id is "<service>.<tool>", e.g. "filesystem.batch.execute"; the
// registry looks the service up and hands the call to its Provider. Every
// call is timed and reported to an optional Recorder and Tracer.
//
// Example:
//
//	registry := service.NewRegistry(service.WithRecorder(metrics))
//	registry.Register(filesystemProvider)
//	result, err := registry.Execute(ctx, "filesystem.read", params, appCtx)
package service
