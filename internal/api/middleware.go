package api

import (
	"log/slog"
	"time"

	"agriapp/internal/auth"

	"github.com/gin-gonic/gin"
)

// requestLogger replaces gin's default access log with a structured one and
// makes the logger available to handlers.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(auth.ContextLogger, log)
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := c.Get(auth.ContextUserID); ok {
			attrs = append(attrs, "userId", id)
		}
		if c.Writer.Status() >= 500 {
			log.Error("request", attrs...)
			return
		}
		log.Info("request", attrs...)
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	return auth.LoggerFrom(c)
}
