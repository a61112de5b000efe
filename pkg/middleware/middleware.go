package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ecrwatch/pkg/logging"
)

const RequestIDHeader = "X-Request-ID"

type ctxLogger interface {
	InfowCtx(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorwCtx(ctx context.Context, msg string, keysAndValues ...interface{})
}

func LoggerMiddleware(logger ctxLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		logFields := []interface{}{
			"status", statusCode,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}

		if errorMessage != "" {
			logFields = append(logFields, "error", errorMessage)
		}

		if statusCode >= 500 {
			logger.ErrorwCtx(c.Request.Context(), "HTTP Request", logFields...)
		} else {
			logger.InfowCtx(c.Request.Context(), "HTTP Request", logFields...)
		}
	}
}

func RecoveryMiddleware(logger ctxLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.ErrorwCtx(c.Request.Context(), "Panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.AbortWithStatusJSON(500, gin.H{
			"error":      "internal server error",
			"error_code": "INTERNAL_ERROR",
		})
	})
}

// RequestIDMiddleware propagates or assigns a request id and exposes it as
// the trace id of the request context for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), requestID))
		c.Next()
	}
}
