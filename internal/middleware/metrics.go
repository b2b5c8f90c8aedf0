package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/internlens/internlens-api/internal/service"
)

// Metrics feeds every request into the Prometheus HTTP histogram,
// labelled by the route template. Requests matching no route are
// recorded under their raw URL path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
