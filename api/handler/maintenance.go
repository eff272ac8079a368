package handler

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
	"github.com/2501Pr0ject/Scrapinium-sub000/scrape"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

// ClearCache handles DELETE /api/v1/cache.
func ClearCache(cm *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		before := cm.Stats(c.Request.Context())
		cleared := cm.Clear(c.Request.Context())
		c.JSON(http.StatusOK, models.OK(gin.H{
			"cleared_entries": cleared,
			"freed_bytes":     before.MemoryBytes,
		}))
	}
}

// DeleteCacheKey handles DELETE /api/v1/cache/:key.
func DeleteCacheKey(cm *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if !cm.Delete(c.Request.Context(), key) {
			respondNotFound(c, "unknown cache key")
			return
		}
		c.JSON(http.StatusOK, models.OK(gin.H{"deleted": key}))
	}
}

// GC handles POST /api/v1/maintenance/gc: force a collection and return
// heap movement.
func GC() gin.HandlerFunc {
	return func(c *gin.Context) {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)

		start := time.Now()
		runtime.GC()
		debug.FreeOSMemory()
		runtime.ReadMemStats(&after)

		freed := int64(before.HeapAlloc) - int64(after.HeapAlloc)
		if freed < 0 {
			freed = 0
		}
		c.JSON(http.StatusOK, models.OK(gin.H{
			"freed_bytes": freed,
			"duration_ms": time.Since(start).Milliseconds(),
			"num_gc":      after.NumGC,
		}))
	}
}

// Optimize handles POST /api/v1/maintenance/optimize: drop expired
// cache entries, idle limiter clients, and idle pacing buckets.
func Optimize(cm *cache.Manager, limiter *ratelimit.Limiter, pacer *scrape.Pacer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(gin.H{
			"cache_purged":    cm.PurgeExpired(),
			"clients_swept":   limiter.Sweep(),
			"pacers_released": pacer.Sweep(),
		}))
	}
}

// Cleanup handles POST /api/v1/maintenance/cleanup: drop old task
// history on top of the optimize pass.
func Cleanup(tasks *taskman.Manager, cm *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.OK(gin.H{
			"history_dropped": tasks.Sweep(24 * time.Hour),
			"cache_purged":    cm.PurgeExpired(),
		}))
	}
}
