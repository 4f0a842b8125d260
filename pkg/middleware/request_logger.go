package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger stores a request-scoped logger under "logger" and logs each
// request once it completes. It must run after TraceIDMiddleware.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With(zap.String("trace_id", c.GetString("trace_id")))
		c.Set("logger", reqLog)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if accountID := c.GetString("account_id"); accountID != "" {
			fields = append(fields, zap.String("account_id", accountID))
		}
		switch {
		case c.Writer.Status() >= 500:
			reqLog.Error("request", fields...)
		case c.Writer.Status() >= 400:
			reqLog.Warn("request", fields...)
		default:
			reqLog.Info("request", fields...)
		}
	}
}
