package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

// PostScrape handles POST /api/v1/scrape: register a pending task and
// launch the pipeline in the background.
func PostScrape(tasks *taskman.Manager, runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		req.Defaults()

		task := &models.Task{
			ID:                 uuid.NewString(),
			URL:                req.URL,
			OutputFormat:       models.OutputFormat(req.OutputFormat),
			TransformProvider:  req.TransformProvider,
			TransformModel:     req.TransformModel,
			CustomInstructions: req.CustomInstructions,
			Status:             models.StatusPending,
		}
		tasks.Add(task)
		runner.Launch(task.ID, &req)

		c.JSON(http.StatusCreated, models.OK(gin.H{
			"task_id": task.ID,
			"status":  task.Status,
		}))
	}
}

// GetTask handles GET /api/v1/scrape/:id.
func GetTask(tasks *taskman.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, ok := tasks.Get(c.Param("id"))
		if !ok {
			respondNotFound(c, "unknown task id")
			return
		}
		c.JSON(http.StatusOK, models.OK(task.View()))
	}
}

// GetTaskResult handles GET /api/v1/scrape/:id/result. The artifact is
// only served for completed tasks.
func GetTaskResult(tasks *taskman.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, ok := tasks.Get(c.Param("id"))
		if !ok {
			respondNotFound(c, "unknown task id")
			return
		}
		if task.Status != models.StatusCompleted {
			c.JSON(http.StatusBadRequest, models.Fail("task is not completed", models.ErrorDetail{
				Kind:      models.ErrKindConflict,
				Message:   "task status is " + string(task.Status),
				Timestamp: time.Now().Unix(),
			}))
			return
		}
		c.JSON(http.StatusOK, models.OK(models.TaskResultView{
			TaskID:   task.ID,
			Result:   task.ResultArtifact,
			Metadata: task.Metadata,
		}))
	}
}

// CancelTask handles DELETE /api/v1/scrape/:id. Unknown and already
// terminal tasks both report 404.
func CancelTask(tasks *taskman.Manager, runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		task, ok := tasks.Get(id)
		if !ok || task.Status.Terminal() {
			respondNotFound(c, "no cancellable task with this id")
			return
		}

		runner.Cancel(id)
		tasks.Cancel(id)

		c.JSON(http.StatusOK, models.OK(gin.H{
			"task_id": id,
			"status":  models.StatusCancelled,
		}))
	}
}

// ListTasks handles GET /api/v1/tasks?limit=N: in-flight tasks first
// (newest first), then history, bounded by limit.
func ListTasks(tasks *taskman.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		combined := tasks.ListActive()
		if len(combined) < limit {
			combined = append(combined, tasks.ListCompleted(limit-len(combined))...)
		} else {
			combined = combined[:limit]
		}

		views := make([]models.TaskView, 0, len(combined))
		for _, t := range combined {
			views = append(views, t.View())
		}
		c.JSON(http.StatusOK, models.OK(gin.H{
			"tasks": views,
			"count": len(views),
		}))
	}
}
