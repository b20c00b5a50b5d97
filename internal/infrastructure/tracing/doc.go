// Package tracing provides lightweight request tracing.
//
// A Tracer hands out spans that carry a trace id and a parent span id in
// the context. Finished spans are buffered and written to the structured
// log by a single collector goroutine; when the buffer is full spans are
// dropped rather than blocking the request.
//
// Propagation uses the X-Trace-ID and X-Span-ID headers.
//
// Usage:
//
//	tracer := tracing.New("fsorch", logger)
//	defer tracer.Close()
//	router.Use(tracing.Middleware(tracer))
//
//	span, ctx := tracer.StartSpan(ctx, "filesystem.transaction.commit")
//	defer tracer.Finish(span)
package tracing
