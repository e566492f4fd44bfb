package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs information about incoming requests using slog.
// Server-side failures are raised to warning so swallowed webhook errors
// still leave a trace.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
		}
		if status >= 500 {
			logger.Warn("http request", attrs...)
			return
		}
		logger.Info("http request", attrs...)
	}
}
