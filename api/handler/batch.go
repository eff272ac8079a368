package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/batch"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// PostBatch handles POST /api/v1/scrape/batch.
func PostBatch(batches *batch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		job := batches.Submit(&req)
		c.JSON(http.StatusCreated, models.OK(job.View()))
	}
}

// GetBatch handles GET /api/v1/scrape/batch/:id.
func GetBatch(batches *batch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := batches.Get(c.Param("id"))
		if !ok {
			respondNotFound(c, "unknown batch id")
			return
		}
		c.JSON(http.StatusOK, models.OK(job.View()))
	}
}

// CancelBatch handles DELETE /api/v1/scrape/batch/:id.
func CancelBatch(batches *batch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !batches.Cancel(id) {
			respondNotFound(c, "no cancellable batch with this id")
			return
		}
		c.JSON(http.StatusOK, models.OK(gin.H{
			"batch_id": id,
			"status":   models.BatchCancelled,
		}))
	}
}

// ListBatches handles GET /api/v1/scrape/batches.
func ListBatches(batches *batch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs := batches.List()
		views := make([]models.BatchView, 0, len(jobs))
		for _, j := range jobs {
			views = append(views, j.View())
		}
		c.JSON(http.StatusOK, models.OK(gin.H{
			"batches": views,
			"count":   len(views),
		}))
	}
}
