package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced (health probes)
	SkipPaths []string
}

// Tracing starts a server span per request with otelgin.
// Pair it with SpanErrorMarker to tag the span with request details.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if actorID, ok := GetActorID(c); ok {
		span.SetAttributes(attribute.String("user_id", actorID.String()))
	}
}

// SpanErrorMarker tags the active span after the handler ran and marks
// server errors. Place it directly after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpan(c, span)
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String("error.code", code))
		}
	}
}

// ErrorCodeKey is set by handlers to the code of the error they returned
const ErrorCodeKey = "error_code"
