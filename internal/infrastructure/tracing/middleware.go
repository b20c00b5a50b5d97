package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware opens a span per request, continuing the caller's trace when
// X-Trace-ID is present, and echoes the ids on the response.
func Middleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithTrace(c.Request.Context(),
			TraceID(c.GetHeader(TraceHeader)),
			SpanID(c.GetHeader(SpanHeader)),
		)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		c.Request = c.Request.WithContext(ctx)

		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.Status = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		} else if span.Status >= http.StatusInternalServerError {
			span.SetTag("outcome", "server_error")
		}
		tracer.Finish(span)
	}
}
