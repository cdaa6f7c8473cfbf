// Package httpmw provides gin middleware shared by the debug server.
package httpmw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rung-dev/rung/internal/logging"
	"go.uber.org/zap"
)

// RequestLogger logs HTTP request details after the handler completes.
func RequestLogger(log *logging.Logger, serverName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}

		fields := []zap.Field{
			zap.String("server", serverName),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int64("duration_ms", latency.Milliseconds()),
			zap.Int("bytes", size),
		}

		switch {
		case len(c.Errors) > 0:
			log.WithError(c.Errors.Last().Err).Error("http", fields...)
		case status >= 500:
			log.Error("http", fields...)
		default:
			log.Debug("http", fields...)
		}
	}
}
