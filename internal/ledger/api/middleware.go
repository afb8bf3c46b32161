package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

const (
	TraceIDHeader = "X-Trace-ID"
	TraceIDKey    = "trace_id"
	LoggerKey     = "logger"
)

func endpoint(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unmatched"
}

// RecoveryMiddleware turns a panic into a 500 and counts it
func RecoveryMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				metrics.PanicsTotal.WithLabelValues(endpoint(c)).Inc()
				logger.Errorf("Panic recovered: %v\nStack trace: %s", err, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
					Error: "Internal server error",
					Code:  "INTERNAL_ERROR",
				})
			}
		}()
		c.Next()
	}
}

// TraceMiddleware tags every request with a trace ID, generating one when the caller sent none,
// and stores a traced logger in the context
func TraceMiddleware(baseLogger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Set(TraceIDKey, traceID)
		c.Set(LoggerKey, baseLogger.WithTraceID(traceID))
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := endpoint(c)
		method := c.Request.Method

		metrics.ActiveRequests.WithLabelValues(path).Inc()
		defer metrics.ActiveRequests.WithLabelValues(path).Dec()

		c.Next()

		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// TimeoutMiddleware bounds the request context. Ledger calls observe it.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetLogger returns the traced logger stored by TraceMiddleware
func GetLogger(c *gin.Context) logging.Logger {
	if logger, ok := c.Get(LoggerKey); ok {
		return logger.(logging.Logger)
	}
	return logging.NewNoOpLogger()
}

func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
