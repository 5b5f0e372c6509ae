package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-attendance-api/internal/service"
)

// Metrics records latency and status for every routed request, plus the cache
// outcome for handlers that call SetCacheHit. Requests whose path is listed in
// skipPaths (health, readiness and scrape endpoints) are passed through untouched.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// Unmatched routes share one label so random URLs cannot grow the series set.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
		if hit, ok := CacheHit(c); ok {
			metricsSvc.ObserveCachedResponse(path, hit)
		}
	}
}
