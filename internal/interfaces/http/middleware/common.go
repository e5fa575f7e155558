// Package middleware provides HTTP middleware for the back-office API.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header and context keys
const (
	RequestIDHeader = "X-Request-ID"
	ActorIDHeader   = "X-User-ID"

	RequestIDKey = "request_id"
	ActorIDKey   = "actor_id"

	maxRequestIDLength = 128
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns a config with no allowed origins; callers opt in
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", RequestIDHeader, ActorIDHeader, "Accept", "Origin"},
		ExposeHeaders:    []string{RequestIDHeader, "Retry-After", "X-RateLimit-Limit"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS returns a CORS middleware for the given origins
func CORS(origins ...string) gin.HandlerFunc {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = origins
	return CORSWithConfig(cfg)
}

// CORSWithConfig returns a CORS middleware with custom config.
// Requests from origins outside the whitelist pass through without CORS headers.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	allowWildcard := slices.Contains(cfg.AllowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := ""
		switch {
		case len(cfg.AllowOrigins) == 0:
		case allowWildcard:
			allowed = "*"
		case origin != "" && slices.Contains(cfg.AllowOrigins, origin):
			allowed = origin
		}

		if allowed != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			if cfg.AllowCredentials && allowed != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
			h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))
			if len(cfg.ExposeHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID reuses the caller's X-Request-ID or generates one, echoes it in
// the response and stores it in both the gin and request contexts.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		ctx, _ := logger.WithRequestID(c.Request.Context(), zap.NewNop(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Actor parses the acting user from X-User-ID. A malformed header is
// rejected; a missing one is left for handlers that require an actor to report.
// It must run before logger.GinMiddleware so request logs carry the user.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorIDHeader)
		if raw == "" {
			c.Next()
			return
		}
		actorID, err := uuid.Parse(raw)
		if err != nil || actorID == uuid.Nil {
			abortWithError(c, http.StatusBadRequest, "ERR_INVALID_ACTOR", "X-User-ID must be a UUID")
			return
		}
		c.Set(ActorIDKey, actorID)

		ctx, _ := logger.WithUserID(c.Request.Context(), zap.NewNop(), actorID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetActorID returns the actor stored by Actor
func GetActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ActorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetRequestID returns the request ID stored by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
