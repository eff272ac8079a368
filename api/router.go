// Package api assembles the gin engine: middleware chain, versioned
// routes, and the custom binding validators.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/api/handler"
	"github.com/2501Pr0ject/Scrapinium-sub000/api/middleware"
	"github.com/2501Pr0ject/Scrapinium-sub000/batch"
	"github.com/2501Pr0ject/Scrapinium-sub000/browser"
	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/llm"
	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
	"github.com/2501Pr0ject/Scrapinium-sub000/scrape"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

// Deps bundles everything the router needs, built once at the
// composition root.
type Deps struct {
	Config    *config.Config
	Tasks     *taskman.Manager
	Pool      *browser.Pool
	Cache     *cache.Manager
	Limiter   *ratelimit.Limiter
	Scraper   *scrape.Service
	Batches   *batch.Service
	Transform *llm.Client
	Metrics   *metrics.Metrics
	StartTime time.Time
}

// NewRouter creates a configured gin engine.
//
// Middleware chain:
//
//	Global:  Recovery → Metrics → SecurityHeaders → CORS
//	Gated:   RateLimit (with request-size gate) on /health and /api/v1
//
// Health counts against the general per-client windows like any other
// read endpoint. Only /metrics stays ungated so the scrape collector is
// never refused.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)
	RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(d.Config.Server.CORSOrigins))

	gate := middleware.RateLimit(d.Limiter, d.Config.RateLimit, d.Metrics)

	r.GET("/health", gate, handler.Health(d.Transform, d.Cache, d.StartTime))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", gate, handler.Health(d.Transform, d.Cache, d.StartTime))

	limited := v1.Group("")
	limited.Use(gate)

	runner := handler.NewRunner(d.Scraper)

	// Single-task lifecycle.
	limited.POST("/scrape", handler.PostScrape(d.Tasks, runner))
	limited.GET("/scrape/:id", handler.GetTask(d.Tasks))
	limited.GET("/scrape/:id/result", handler.GetTaskResult(d.Tasks))
	limited.DELETE("/scrape/:id", handler.CancelTask(d.Tasks, runner))
	limited.GET("/tasks", handler.ListTasks(d.Tasks))

	// Batches.
	limited.POST("/scrape/batch", handler.PostBatch(d.Batches))
	limited.GET("/scrape/batches", handler.ListBatches(d.Batches))
	limited.GET("/scrape/batch/:id", handler.GetBatch(d.Batches))
	limited.DELETE("/scrape/batch/:id", handler.CancelBatch(d.Batches))

	// Observability.
	limited.GET("/stats", handler.Stats(d.Tasks, d.Pool))
	limited.GET("/stats/browser", handler.BrowserStats(d.Pool))
	limited.GET("/stats/cache", handler.CacheStats(d.Cache))
	limited.GET("/stats/ratelimit", handler.RateLimitStats(d.Limiter))
	limited.GET("/stats/memory", handler.MemoryStats())

	// Cache and resource administration.
	limited.DELETE("/cache", handler.ClearCache(d.Cache))
	limited.DELETE("/cache/:key", handler.DeleteCacheKey(d.Cache))
	limited.POST("/maintenance/gc", handler.GC())
	limited.POST("/maintenance/optimize", handler.Optimize(d.Cache, d.Limiter, d.Scraper.Pacer()))
	limited.POST("/maintenance/cleanup", handler.Cleanup(d.Tasks, d.Cache))

	return r
}
