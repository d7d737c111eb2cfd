package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/99-66/simple-auth-jwt/internal/metrics"
)

// RecordMetrics records request counts and durations per route. The route
// template (c.FullPath) is used instead of the raw URL to keep label
// cardinality bounded.
func RecordMetrics(m metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
