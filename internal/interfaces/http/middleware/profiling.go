package middleware

import (
	"context"
	"strings"

	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags CPU samples taken while a request is served with its
// method and route, so flame graphs can be split per endpoint.
// Requests for paths in skip are served unlabelled.
func Profiling(enabled bool, skip ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skip {
			if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
				c.Next()
				return
			}
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.WithProfilingLabels(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, "http_method", c.Request.Method, "http_route", route)
	}
}
