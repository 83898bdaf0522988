package middleware

import (
	"time"

	"gamevault/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware 记录请求量与耗时，按路由模板聚合
func MetricsMiddleware() gin.HandlerFunc {
	collector := metrics.Default()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
