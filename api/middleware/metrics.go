package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
)

// Metrics records request counts and latencies per route. Routes are
// the gin templates (e.g. /api/v1/scrape/:id), keeping cardinality low.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := fmt.Sprintf("%dxx", c.Writer.Status()/100)
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
