// Package handler implements the HTTP endpoints. Each handler is a
// constructor taking its dependencies and returning a gin.HandlerFunc.
package handler

import (
	"context"
	"sync"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Executor runs one task's pipeline to a terminal state. Satisfied by
// the scraping service.
type Executor interface {
	Execute(ctx context.Context, taskID string, req *models.ScrapeTaskRequest)
}

// Runner launches pipeline executions in the background and keeps the
// cancel handle for each in-flight task so DELETE can unwind it.
type Runner struct {
	svc     Executor
	cancels sync.Map // task id → context.CancelFunc
}

// NewRunner wraps the scraping service.
func NewRunner(svc Executor) *Runner {
	return &Runner{svc: svc}
}

// Launch starts one pipeline execution in the background.
func (r *Runner) Launch(taskID string, req *models.ScrapeTaskRequest) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancels.Store(taskID, cancel)

	go func() {
		defer r.cancels.Delete(taskID)
		defer cancel()
		r.svc.Execute(ctx, taskID, req)
	}()
}

// Cancel fires the task's context if it is still in flight.
func (r *Runner) Cancel(taskID string) {
	if v, ok := r.cancels.Load(taskID); ok {
		v.(context.CancelFunc)()
	}
}
