// Package scrape orchestrates the extraction pipeline for one task:
// cache lookup, page render, content extraction, optional transform,
// artifact rendering, cache write-back.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2501Pr0ject/Scrapinium-sub000/browser"
	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/cleaner"
	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/llm"
	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

// Progress milestones of one pipeline run. Progress only moves forward;
// the registry rejects regressions anyway.
const (
	progressInit      = 10
	progressFetched   = 40
	progressExtracted = 70
	progressEnriched  = 80
	progressRendered  = 95
)

// Service wires the pipeline stages together. Everything is injected at
// the composition root; the service holds no global state.
type Service struct {
	pool      *browser.Pool
	cleaner   *cleaner.Cleaner
	cache     *cache.Manager
	transform *llm.Client
	tasks     *taskman.Manager
	pacer     *Pacer
	cfg       config.ScraperConfig
	metrics   *metrics.Metrics
}

// New assembles the scraping service.
func New(pool *browser.Pool, cl *cleaner.Cleaner, cm *cache.Manager, tr *llm.Client, tm *taskman.Manager, cfg config.ScraperConfig) *Service {
	return &Service{
		pool:      pool,
		cleaner:   cl,
		cache:     cm,
		transform: tr,
		tasks:     tm,
		pacer:     NewPacer(cfg.DomainRatePerSecond, cfg.DomainBurst),
		cfg:       cfg,
	}
}

// Pacer exposes the per-domain pacer for the maintenance sweep.
func (s *Service) Pacer() *Pacer { return s.pacer }

// SetMetrics attaches Prometheus instrumentation. Nil-safe: without it
// the pipeline simply records nothing.
func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) observeFinished(status models.TaskStatus, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.TasksFinished.WithLabelValues(string(status)).Inc()
	if status == models.StatusCompleted {
		s.metrics.ScrapeDuration.Observe(elapsed.Seconds())
	}
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(outcome).Inc()
}

// cachedArtifact is the envelope stored in the cache: the rendered
// artifact plus the metadata needed to complete a task from cache alone.
type cachedArtifact struct {
	Artifact string               `json:"artifact"`
	Metadata *models.TaskMetadata `json:"metadata"`
}

// Execute runs the full pipeline for an already-registered task and
// drives it to a terminal state. It never returns an error to the
// caller; failures are recorded on the task.
func (s *Service) Execute(ctx context.Context, taskID string, req *models.ScrapeTaskRequest) {
	start := time.Now()

	running := models.StatusRunning
	s.patch(taskID, taskman.Patch{Status: &running})
	s.progress(taskID, progressInit, "initializing")

	useCache := req.UseCache == nil || *req.UseCache
	fp := Fingerprint(req)

	if useCache {
		if data, ok := s.cache.Get(ctx, fp); ok {
			var hit cachedArtifact
			if err := json.Unmarshal(data, &hit); err == nil {
				if hit.Metadata == nil {
					hit.Metadata = &models.TaskMetadata{}
				}
				hit.Metadata.CacheHit = true
				s.tasks.Complete(taskID, taskman.Result{
					Artifact:         hit.Artifact,
					Metadata:         hit.Metadata,
					ExecutionTimeMs:  time.Since(start).Milliseconds(),
					ContentSizeBytes: len(hit.Artifact),
					TokensUsed:       cleaner.EstimateArtifactTokens(hit.Artifact),
				})
				s.observeCache(true)
				s.observeFinished(models.StatusCompleted, time.Since(start))
				slog.Info("scrape served from cache", "task_id", taskID, "url", req.URL)
				return
			}
			slog.Warn("scrape: dropping malformed cache entry", "key", fp)
			s.cache.Delete(ctx, fp)
		}
		s.observeCache(false)
	}

	if s.cancelled(ctx, taskID) {
		return
	}

	if err := s.pacer.Wait(ctx, req.URL); err != nil {
		s.finishErr(taskID, req.URL, models.NewTaskError(models.ErrKindTimeout,
			"cancelled while pacing", err))
		return
	}

	page, err := s.fetch(ctx, taskID, req)
	if err != nil {
		s.finishErr(taskID, req.URL, err)
		return
	}
	s.progress(taskID, progressFetched, "page rendered")

	if s.cancelled(ctx, taskID) {
		return
	}

	// Structured data parsing is independent of main-content isolation,
	// so both run on the same raw HTML concurrently.
	structuredCh := make(chan *models.StructuredData, 1)
	go func() {
		structuredCh <- cleaner.ExtractStructured(page.RawHTML)
	}()

	extractHTML := page.RawHTML
	if req.CSSSelector != "" {
		narrowed, selErr := cleaner.ApplyCSSSelector(page.RawHTML, req.CSSSelector)
		if selErr != nil {
			s.finishErr(taskID, req.URL, models.NewTaskError(models.ErrKindValidation,
				fmt.Sprintf("invalid css_selector: %v", selErr), selErr))
			return
		}
		extractHTML = narrowed
	}

	res := s.cleaner.Extract(extractHTML, page.FinalURL)
	structured := <-structuredCh
	s.progress(taskID, progressExtracted, "content extracted")

	if s.cancelled(ctx, taskID) {
		return
	}

	meta := buildMetadata(page, &res, structured)
	s.progress(taskID, progressEnriched, "metadata assembled")

	if shouldTransform(req) && s.transform != nil && s.transform.Enabled() {
		s.applyTransform(ctx, taskID, req, &res, meta)
	}

	artifact := s.cleaner.Render(res, page, models.OutputFormat(req.OutputFormat))
	s.progress(taskID, progressRendered, "artifact rendered")

	if s.cancelled(ctx, taskID) {
		return
	}

	if useCache {
		if payload, mErr := json.Marshal(cachedArtifact{Artifact: artifact, Metadata: meta}); mErr == nil {
			s.cache.Set(ctx, fp, payload, 0)
		}
	}

	s.tasks.Complete(taskID, taskman.Result{
		Artifact:         artifact,
		Metadata:         meta,
		ExecutionTimeMs:  time.Since(start).Milliseconds(),
		ContentSizeBytes: len(artifact),
		TokensUsed:       cleaner.EstimateArtifactTokens(artifact),
	})
	s.observeFinished(models.StatusCompleted, time.Since(start))
	slog.Info("scrape completed", "task_id", taskID, "url", req.URL,
		"duration_ms", time.Since(start).Milliseconds(), "bytes", len(artifact))
}

// fetch acquires an engine, renders the page, and harvests links and
// images. The engine goes back to the pool marked unhealthy only for
// rendering-level failures, not for HTTP error statuses.
func (s *Service) fetch(ctx context.Context, taskID string, req *models.ScrapeTaskRequest) (*models.PageData, error) {
	eng, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rendered, err := s.pool.Render(ctx, eng, req.URL, browser.RenderOptions{
		Stealth:        req.Stealth,
		RemoveOverlays: req.RemoveOverlays,
		Timeout:        s.cfg.RequestTimeout,
	})
	if err != nil {
		var taskErr *models.TaskError
		healthy := errors.As(err, &taskErr) && taskErr.Kind == models.ErrKindTimeout
		s.pool.Release(eng, healthy)
		return nil, err
	}
	s.pool.Release(eng, true)

	if rendered.StatusCode >= 400 {
		return nil, models.NewTaskError(models.ErrKindNetwork,
			fmt.Sprintf("target returned HTTP %d", rendered.StatusCode), nil)
	}

	page := &models.PageData{
		RawHTML:    rendered.RawHTML,
		Title:      rendered.Title,
		FinalURL:   rendered.FinalURL,
		StatusCode: rendered.StatusCode,
	}
	if s.cfg.MaxContentSize > 0 && len(page.RawHTML) > s.cfg.MaxContentSize {
		page.RawHTML = page.RawHTML[:s.cfg.MaxContentSize]
		page.Truncated = true
		slog.Warn("scrape: rendered HTML truncated",
			"task_id", taskID, "limit", s.cfg.MaxContentSize)
	}

	page.Meta = cleaner.HarvestMeta(page.RawHTML)
	page.Links = cleaner.HarvestLinks(page.RawHTML, page.FinalURL, s.cfg.MaxLinks)
	page.Images = cleaner.HarvestImages(page.RawHTML, page.FinalURL, s.cfg.MaxImages)
	return page, nil
}

// shouldTransform gates the optional transform step: it applies only to
// markdown artifacts with a configured provider. Structured formats
// carry the extraction verbatim.
func shouldTransform(req *models.ScrapeTaskRequest) bool {
	if !req.UseTransform() {
		return false
	}
	format := models.OutputFormat(req.OutputFormat)
	return format == "" || format == models.FormatMarkdown
}

// applyTransform runs the optional content transform. Failures degrade
// to the untransformed extraction; they never fail the task.
func (s *Service) applyTransform(ctx context.Context, taskID string, req *models.ScrapeTaskRequest, res *cleaner.Result, meta *models.TaskMetadata) {
	instruction := req.CustomInstructions
	if instruction == "" {
		instruction = "Summarize the article in a few concise paragraphs."
	}

	out, usage, err := s.transform.Transform(ctx, res.MainContent, instruction, req.TransformModel)
	if err != nil {
		slog.Warn("scrape: transform failed, keeping extraction",
			"task_id", taskID, "provider", req.TransformProvider, "error", err)
		return
	}

	res.MainContent = out
	res.ContentHTML = "" // transformed text no longer matches the HTML fragment
	meta.TransformUsed = true
	if usage != nil {
		meta.CleanedTokens = usage.TotalTokens
	}
}

// buildMetadata assembles the task metadata from the page harvest, the
// extraction, and the structured-data pass, including the token savings
// estimate against the raw HTML.
func buildMetadata(page *models.PageData, res *cleaner.Result, structured *models.StructuredData) *models.TaskMetadata {
	meta := &models.TaskMetadata{
		Title:           res.Title,
		Author:          res.Author,
		PublicationDate: res.PublicationDate,
		Language:        res.Language,
		Tags:            res.Tags,
		WordCount:       res.WordCount,
		ReadingTimeMin:  res.ReadingTimeMin,
		LinkCount:       len(page.Links),
		ImageCount:      len(page.Images),
		FinalURL:        page.FinalURL,
		StatusCode:      page.StatusCode,
	}
	if meta.Title == "" {
		meta.Title = page.Title
	}
	if page.Meta != nil {
		meta.Description = page.Meta["description"]
		meta.SiteName = page.Meta["og:site_name"]
	}
	if structured != nil && (len(structured.JSONLD) > 0 || len(structured.OpenGraph) > 0 || len(structured.TwitterCard) > 0) {
		meta.Structured = structured
	}

	meta.OriginalTokens = cleaner.EstimateHTMLTokens(page.RawHTML)
	meta.CleanedTokens = cleaner.EstimateHTMLTokens(res.MainContent)
	if meta.OriginalTokens > 0 {
		meta.SavingsPercent = 100 * float64(meta.OriginalTokens-meta.CleanedTokens) / float64(meta.OriginalTokens)
		if meta.SavingsPercent < 0 {
			meta.SavingsPercent = 0
		}
	}
	return meta
}

// cancelled checks for context cancellation at a pipeline suspension
// point and, if fired, drives the task to cancelled.
func (s *Service) cancelled(ctx context.Context, taskID string) bool {
	if ctx.Err() == nil {
		return false
	}
	s.tasks.Cancel(taskID)
	s.observeFinished(models.StatusCancelled, 0)
	slog.Info("scrape cancelled", "task_id", taskID)
	return true
}

func (s *Service) progress(taskID string, progress int, message string) {
	s.patch(taskID, taskman.Patch{Progress: &progress, StatusMessage: &message})
}

func (s *Service) patch(taskID string, patch taskman.Patch) {
	s.tasks.Update(taskID, patch)
}

// finishErr records a failure on the task with its structured detail.
func (s *Service) finishErr(taskID, url string, err error) {
	var taskErr *models.TaskError
	if !errors.As(err, &taskErr) {
		taskErr = models.NewTaskError(models.ErrKindInternal, err.Error(), err)
	}
	detail := taskErr.ToDetail()
	detail.URL = url
	detail.Timestamp = time.Now().Unix()
	s.tasks.Fail(taskID, taskErr.Message, detail)
	s.observeFinished(models.StatusFailed, 0)
	slog.Error("scrape failed", "task_id", taskID, "url", url,
		"kind", taskErr.Kind, "error", err)
}
