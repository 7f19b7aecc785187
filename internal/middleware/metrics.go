package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"finsight/internal/observability"
)

// Metrics returns a Gin middleware that records request duration and count
// per route. Unmatched routes are grouped under "unmatched" to keep label
// cardinality bounded.
func Metrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
