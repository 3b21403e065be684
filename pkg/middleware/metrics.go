package middleware

import (
	"strconv"
	"time"

	"bitwise74/todo-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// NewMetricsMiddleware records request counts and latency per route
// template, so /todo/1 and /todo/2 share a series
func NewMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
