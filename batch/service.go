// Package batch coordinates multi-URL scrape jobs: N single-URL tasks
// under one configuration snapshot, a shared concurrency semaphore, and
// rollup progress tracking.
package batch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
	"github.com/2501Pr0ject/Scrapinium-sub000/webhook"
)

// Executor runs one task's pipeline to a terminal state. Satisfied by
// the scraping service.
type Executor interface {
	Execute(ctx context.Context, taskID string, req *models.ScrapeTaskRequest)
}

// Service owns every batch job in the process. Jobs and their child
// tasks live in memory; the task registry is the source of truth for
// per-URL state, the batch record for the rollups.
type Service struct {
	mu      sync.Mutex
	jobs    map[string]*models.BatchJob
	cancels map[string]context.CancelFunc

	scraper  Executor
	tasks    *taskman.Manager
	cfg      config.BatchConfig
	notifier *webhook.Notifier
	metrics  *metrics.Metrics
}

// SetMetrics attaches Prometheus instrumentation. Nil-safe.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// New creates the batch service.
func New(scraper Executor, tasks *taskman.Manager, cfg config.BatchConfig) *Service {
	return &Service{
		jobs:     make(map[string]*models.BatchJob),
		cancels:  make(map[string]context.CancelFunc),
		scraper:  scraper,
		tasks:    tasks,
		cfg:      cfg,
		notifier: webhook.NewNotifier(),
	}
}

// Submit registers a batch and its child tasks, then starts execution
// in the background. The returned snapshot reflects the pending state.
func (s *Service) Submit(req *models.BatchScrapeRequest) *models.BatchJob {
	req.Defaults()

	now := time.Now()
	job := &models.BatchJob{
		ID:   uuid.NewString(),
		Name: req.Name,
		URLs: append([]string(nil), req.URLs...),
		Config: models.BatchConfig{
			OutputFormat:        models.OutputFormat(req.OutputFormat),
			TransformProvider:   req.TransformProvider,
			TransformModel:      req.TransformModel,
			CustomInstructions:  req.CustomInstructions,
			UseCache:            req.UseCache == nil || *req.UseCache,
			ParallelLimit:       req.ParallelLimit,
			DelayBetweenRequest: time.Duration(req.DelayBetweenRequests) * time.Millisecond,
			WebhookURL:          req.WebhookURL,
			WebhookSecret:       req.WebhookSecret,
		},
		Status:    models.BatchPending,
		Pending:   len(req.URLs),
		TaskIDs:   make(map[string]string, len(req.URLs)),
		Errors:    make(map[string]string),
		CreatedAt: now,
	}

	// Naive ETA: per-URL estimate divided across the parallel lanes.
	perURL := s.cfg.PerURLEstimate
	if perURL <= 0 {
		perURL = 10 * time.Second
	}
	eta := now.Add(perURL * time.Duration(len(req.URLs)) / time.Duration(job.Config.ParallelLimit))
	job.EstimatedCompletion = &eta

	for _, url := range req.URLs {
		task := &models.Task{
			ID:           uuid.NewString(),
			URL:          url,
			OutputFormat: job.Config.OutputFormat,
			Status:       models.StatusPending,
			BatchID:      job.ID,
		}
		s.tasks.Add(task)
		job.TaskIDs[url] = task.ID
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	go s.run(ctx, job.ID)

	slog.Info("batch submitted", "batch_id", job.ID, "urls", len(req.URLs),
		"parallel_limit", job.Config.ParallelLimit)
	return job.Clone()
}

// run executes the batch: a semaphore bounds in-flight tasks, launches
// are staggered by the configured delay, and rollups update as each
// task finishes.
func (s *Service) run(ctx context.Context, jobID string) {
	job, ok := s.snapshot(jobID)
	if !ok {
		return
	}

	s.update(jobID, func(j *models.BatchJob) {
		now := time.Now()
		j.Status = models.BatchRunning
		j.StartedAt = &now
	})

	sem := make(chan struct{}, job.Config.ParallelLimit)
	var wg sync.WaitGroup

	for i, url := range job.URLs {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && job.Config.DelayBetweenRequest > 0 {
			select {
			case <-time.After(job.Config.DelayBetweenRequest):
			case <-ctx.Done():
			}
		}

		taskID := job.TaskIDs[url]
		wg.Add(1)
		go func(url, taskID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				s.tasks.Cancel(taskID)
				s.recordOutcome(jobID, url, taskID, false)
				return
			}

			if ctx.Err() != nil {
				s.tasks.Cancel(taskID)
				s.recordOutcome(jobID, url, taskID, false)
				return
			}

			s.update(jobID, func(j *models.BatchJob) {
				j.Pending--
				j.Running++
			})

			useCache := job.Config.UseCache
			s.scraper.Execute(ctx, taskID, &models.ScrapeTaskRequest{
				URL:                url,
				OutputFormat:       string(job.Config.OutputFormat),
				TransformProvider:  job.Config.TransformProvider,
				TransformModel:     job.Config.TransformModel,
				CustomInstructions: job.Config.CustomInstructions,
				UseCache:           &useCache,
			})
			s.recordOutcome(jobID, url, taskID, true)
		}(url, taskID)
	}

	wg.Wait()

	// Tasks never dispatched (cancellation hit the launch loop first).
	for url, taskID := range job.TaskIDs {
		if task, ok := s.tasks.Get(taskID); ok && !task.Status.Terminal() {
			s.tasks.Cancel(taskID)
			s.recordOutcome(jobID, url, taskID, false)
		}
	}

	s.finalize(jobID, ctx.Err() != nil)
}

// recordOutcome folds one finished task into the batch rollups.
// wasRunning distinguishes tasks that executed from tasks cancelled
// while still queued, keeping Completed+Failed+Running+Pending == total.
func (s *Service) recordOutcome(jobID, url, taskID string, wasRunning bool) {
	task, ok := s.tasks.Get(taskID)
	if !ok {
		return
	}

	s.update(jobID, func(j *models.BatchJob) {
		if wasRunning {
			j.Running--
		} else if j.Pending > 0 {
			j.Pending--
		}
		switch task.Status {
		case models.StatusCompleted:
			j.Completed++
		case models.StatusFailed:
			j.Failed++
			j.Errors[url] = task.ErrorMessage
		case models.StatusCancelled:
			j.Failed++
			j.Errors[url] = "cancelled"
		}
		total := len(j.URLs)
		if total > 0 {
			j.Progress = 100 * (j.Completed + j.Failed) / total
		}
	})
}

// finalize stamps the terminal batch status and fires the webhook.
func (s *Service) finalize(jobID string, cancelled bool) {
	var terminal *models.BatchJob
	s.update(jobID, func(j *models.BatchJob) {
		now := time.Now()
		j.FinishedAt = &now
		j.Running = 0
		j.Progress = 100

		switch {
		case cancelled:
			j.Status = models.BatchCancelled
		case j.Failed == 0:
			j.Status = models.BatchCompleted
		case j.Completed == 0:
			j.Status = models.BatchFailed
		default:
			j.Status = models.BatchCompletedWithErrors
		}
		terminal = j.Clone()
	})

	s.mu.Lock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
		delete(s.cancels, jobID)
	}
	s.mu.Unlock()

	if terminal == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.BatchesFinished.WithLabelValues(string(terminal.Status)).Inc()
	}
	slog.Info("batch finished", "batch_id", jobID, "status", terminal.Status,
		"completed", terminal.Completed, "failed", terminal.Failed)

	if terminal.Config.WebhookURL != "" {
		s.notifier.Notify(terminal.Config.WebhookURL, terminal.Config.WebhookSecret,
			webhook.EventFromBatch(terminal))
	}
}

// Get returns a snapshot of the batch.
func (s *Service) Get(id string) (*models.BatchJob, bool) {
	return s.snapshot(id)
}

// List returns snapshots of all known batches, newest first.
func (s *Service) List() []*models.BatchJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.BatchJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// Cancel stops a running batch. In-flight tasks observe the context at
// their next suspension point; queued tasks never start.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	cancel, hasCancel := s.cancels[id]
	s.mu.Unlock()

	if hasCancel {
		cancel()
	}
	slog.Info("batch cancellation requested", "batch_id", id)
	return true
}

func (s *Service) snapshot(id string) (*models.BatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

func (s *Service) update(id string, fn func(*models.BatchJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}
