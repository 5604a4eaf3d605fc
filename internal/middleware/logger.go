package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// RequestIDHeader is the header name for request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the key for storing request ID in Gin context
	RequestIDContextKey = "requestID"
	// LoggerContextKey holds the request-scoped logger read by common.RespondWithError.
	LoggerContextKey = "logger"
)

// ZapLogger is a Gin middleware that logs requests using Zap. Outside release
// mode every request is logged at info.
func ZapLogger(logger *zap.Logger, ginMode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(RequestIDContextKey, requestID)
		reqLogger := logger.With(zap.String("request_id", requestID))
		c.Set(LoggerContextKey, reqLogger)

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zapcore.Field{
			zap.Int("status_code", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
			fields = append(fields, zap.NamedError("error", e.Err))
		}

		switch {
		case ginMode != gin.ReleaseMode || statusCode < 400:
			reqLogger.Info("Request handled", fields...)
		case statusCode < 500:
			reqLogger.Warn("Client error", fields...)
		default:
			reqLogger.Error("Server error", fields...)
		}
	}
}
