package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/JadeOpenClawAI/ai-chat-sub001/internal/security"
)

// Logger logs request details using Zap. OAuth callbacks carry the code and
// state in the query, so the query is redacted before it is logged.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + security.Redact(redactQueryParams(raw))
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", GetRequestID(c)),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", security.Redact(c.Errors.String())))
		}

		msg := "Incoming Request"
		if status >= 500 {
			logger.Error(msg, fields...)
		} else if status >= 400 {
			logger.Warn(msg, fields...)
		} else {
			logger.Info(msg, fields...)
		}
	}
}

var sensitiveQueryParams = []string{"code", "state", "code_verifier", "access_token", "refresh_token"}

func redactQueryParams(raw string) string {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return security.Placeholder
	}
	for _, k := range sensitiveQueryParams {
		if q.Has(k) {
			q.Set(k, security.Placeholder)
		}
	}
	return q.Encode()
}
