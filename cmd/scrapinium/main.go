package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/2501Pr0ject/Scrapinium-sub000/api"
	"github.com/2501Pr0ject/Scrapinium-sub000/batch"
	"github.com/2501Pr0ject/Scrapinium-sub000/browser"
	"github.com/2501Pr0ject/Scrapinium-sub000/cache"
	"github.com/2501Pr0ject/Scrapinium-sub000/cleaner"
	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/llm"
	"github.com/2501Pr0ject/Scrapinium-sub000/metrics"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
	"github.com/2501Pr0ject/Scrapinium-sub000/scrape"
	"github.com/2501Pr0ject/Scrapinium-sub000/taskman"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("scrapinium starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engines", cfg.Browser.EnginePoolSize(),
	)

	// ── 3. Build the component graph ────────────────────────────────
	// Everything is constructed once here and injected; no package-level
	// singletons.
	pool, err := browser.NewPool(cfg.Browser, cfg.Scraper.RequestTimeout)
	if err != nil {
		slog.Error("failed to initialise browser pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	cacheManager, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialise cache", "error", err)
		os.Exit(1)
	}
	defer cacheManager.Close()

	tasks := taskman.New(taskman.DefaultHistoryCapacity)
	limiter := ratelimit.New()
	transform := llm.NewClient(nil, cfg.Transform)
	m := metrics.New()

	scraper := scrape.New(pool, cleaner.New(), cacheManager, transform, tasks, cfg.Scraper)
	scraper.SetMetrics(m)

	batches := batch.New(scraper, tasks, cfg.Batch)
	batches.SetMetrics(m)

	// ── 4. Background maintenance ───────────────────────────────────
	sched := cron.New()
	_, _ = sched.AddFunc("@every 5m", func() {
		limiter.Sweep()
		scraper.Pacer().Sweep()
		cacheManager.PurgeExpired()
	})
	_, _ = sched.AddFunc("@every 1h", func() {
		tasks.Sweep(24 * time.Hour)
	})
	_, _ = sched.AddFunc("@every 15s", func() {
		stats := pool.Stats()
		m.PoolActive.Set(float64(stats.Active))
		m.PoolWaitMs.Set(stats.AverageWaitMs)
	})
	sched.Start()
	defer sched.Stop()

	// ── 5. Router and HTTP server ───────────────────────────────────
	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Tasks:     tasks,
		Pool:      pool,
		Cache:     cacheManager,
		Limiter:   limiter,
		Scraper:   scraper,
		Batches:   batches,
		Transform: transform,
		Metrics:   m,
		StartTime: time.Now(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 10 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Close() and cacheManager.Close() run via defer.
	slog.Info("scrapinium stopped")
}

// initLogger configures slog from LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
