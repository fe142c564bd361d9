package middleware

import (
  "time"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/otel/trace"
  "github.com/metroflow/induction-backend/internal/logger"
)

type RequestLogMiddleware struct {
  log *logger.Logger
}

func NewRequestLogMiddleware(log *logger.Logger) *RequestLogMiddleware {
  middlewareLogger := log.With("Middleware", "RequestLogMiddleware")
  return &RequestLogMiddleware{log: middlewareLogger}
}

// LogRequests emits one structured line per request with latency and
// status, replacing gin's default writer-based log.
func (rl *RequestLogMiddleware) LogRequests() gin.HandlerFunc {
  return func(c *gin.Context) {
    start := time.Now()
    c.Next()
    fields := []interface{}{
      "method", c.Request.Method,
      "path", c.FullPath(),
      "status", c.Writer.Status(),
      "latency_ms", time.Since(start).Milliseconds(),
      "client_ip", c.ClientIP(),
    }
    if span := trace.SpanContextFromContext(c.Request.Context()); span.HasTraceID() {
      fields = append(fields, "trace_id", span.TraceID().String())
    }
    rl.log.Info("HTTP request", fields...)
  }
}
