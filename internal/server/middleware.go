package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-screener/internal/logger"
)

const requestIDKey = "request_id"

// RequestIDMiddleware propagates X-Request-ID, generating one when absent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// LoggingMiddleware logs one line per request. Health checks log at debug.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
			"client_ip", c.ClientIP(),
		}
		switch {
		case c.FullPath() == "/health":
			logger.Debug(ctx, "HTTP request", fields...)
		case c.Writer.Status() >= 500:
			logger.Error(ctx, "HTTP request", fields...)
		default:
			logger.Info(ctx, "HTTP request", fields...)
		}
	}
}
