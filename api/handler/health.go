package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/llm"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Health handles GET /health, reporting liveness plus the state of the
// optional collaborators. Served at both / and /api/v1.
func Health(transform *llm.Client, cm *cache.Manager, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		transformStatus := "unconfigured"
		if transform != nil && transform.Enabled() {
			if transform.Ping(c.Request.Context()) {
				transformStatus = "available"
			} else {
				transformStatus = "unreachable"
			}
		}

		database := "disabled"
		if stats := cm.Stats(c.Request.Context()); stats.RemoteEnabled {
			database = "connected"
			if remote, ok := stats.RemoteStats["status"].(string); ok && remote != "ok" {
				database = "unreachable"
			}
		}

		c.JSON(http.StatusOK, models.OK(models.HealthView{
			API:               "operational",
			TransformProvider: transformStatus,
			Database:          database,
			MLPipeline:        "disabled",
			Uptime:            time.Since(startTime).Round(time.Second).String(),
			Version:           Version,
		}))
	}
}
