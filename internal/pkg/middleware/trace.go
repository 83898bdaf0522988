package middleware

import (
	"gamevault/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TraceHeader 跨服务透传的追踪 ID
	TraceHeader = "X-Trace-ID"

	ctxTraceID = "traceID"
)

// TraceMiddleware 沿用上游的追踪 ID，格式不对或缺失时重新生成
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if !sessionIDPattern.MatchString(traceID) {
			traceID = uuid.New().String()
		}

		c.Set(ctxTraceID, traceID)
		c.Header(TraceHeader, traceID)
		c.Next()
	}
}

// GetTraceID 当前请求的追踪 ID
func GetTraceID(c *gin.Context) string {
	return c.GetString(ctxTraceID)
}

// RequestLogger 带追踪 ID 与结账会话的日志实例
func RequestLogger(c *gin.Context) *zap.Logger {
	fields := []zap.Field{zap.String("trace_id", GetTraceID(c))}
	if sid := GetSessionID(c); sid != "" {
		fields = append(fields, zap.String("session", sid))
	}
	return logger.Log.With(fields...)
}
