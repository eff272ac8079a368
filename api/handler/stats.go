package handler

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/browser"
	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

// Stats handles GET /api/v1/stats: registry rollups plus pool summary.
func Stats(tasks *taskman.Manager, pool *browser.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(gin.H{
			"tasks":   tasks.Stats(),
			"browser": pool.Stats(),
		}))
	}
}

// BrowserStats handles GET /api/v1/stats/browser.
func BrowserStats(pool *browser.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(pool.Stats()))
	}
}

// CacheStats handles GET /api/v1/stats/cache.
func CacheStats(cm *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(cm.Stats(c.Request.Context())))
	}
}

// RateLimitStats handles GET /api/v1/stats/ratelimit.
func RateLimitStats(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(limiter.Stats()))
	}
}

// MemoryStats handles GET /api/v1/stats/memory.
func MemoryStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		const mb = 1 << 20
		rss := float64(ms.Sys) / mb
		heapAlloc := float64(ms.HeapAlloc) / mb
		percent := 0.0
		if ms.Sys > 0 {
			percent = 100 * float64(ms.HeapInuse) / float64(ms.Sys)
		}

		c.JSON(http.StatusOK, models.OK(models.MemoryStats{
			RSSMb:        rss,
			HeapAllocMb:  heapAlloc,
			HeapInuseMb:  float64(ms.HeapInuse) / mb,
			Percent:      percent,
			NumGoroutine: runtime.NumGoroutine(),
			NumGC:        ms.NumGC,
		}))
	}
}
