// Package browser manages a bounded pool of long-lived headless
// rendering engines plus reusable rendering contexts (pages) inside
// each engine.
package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// waitSampleWindow bounds the acquisition wait-time ring.
const waitSampleWindow = 100

// Engine is one long-lived headless browser process with its own pool
// of reusable rendering contexts.
type Engine struct {
	ID      int64
	browser *rod.Browser
	pages   rod.Pool[rod.Page]
}

// Healthy reports whether the engine's control connection is still
// alive. A dead engine is replaced by the pool on release.
func (e *Engine) Healthy() bool {
	_, err := proto.BrowserGetVersion{}.Call(e.browser)
	return err == nil
}

// Pool is the bounded rendering-engine pool. Engines are created at
// initialization and replaced on failure, never freed except at
// shutdown.
type Pool struct {
	cfg            config.BrowserConfig
	requestTimeout time.Duration

	idle chan *Engine

	mu      sync.Mutex
	engines map[int64]*Engine
	nextID  atomic.Int64
	closed  bool

	active            atomic.Int32
	peak              atomic.Int32
	totalAcquisitions atomic.Int64

	waitMu      sync.Mutex
	waitSamples []float64 // ring, milliseconds
	waitNext    int
	waitFilled  bool

	assets *assetMemo
	filter *requestFilter
}

// NewPool launches the configured number of engines and prepares the
// request filter shared by every rendering context.
func NewPool(cfg config.BrowserConfig, requestTimeout time.Duration) (*Pool, error) {
	size := cfg.EnginePoolSize()

	p := &Pool{
		cfg:            cfg,
		requestTimeout: requestTimeout,
		idle:           make(chan *Engine, size),
		engines:        make(map[int64]*Engine, size),
		waitSamples:    make([]float64, waitSampleWindow),
		assets:         newAssetMemo(30 * time.Second),
		filter:         newRequestFilter(cfg),
	}

	for i := 0; i < size; i++ {
		eng, err := p.launchEngine()
		if err != nil {
			p.Close()
			return nil, models.NewTaskError(models.ErrKindRendering,
				"failed to launch rendering engine", err)
		}
		p.registerEngine(eng)
		p.idle <- eng
	}

	slog.Info("browser pool ready", "engines", size,
		"pagesPerEngine", cfg.PagesPerEngine)
	return p, nil
}

// launchEngine starts one headless browser with the pool's startup
// contract: no GPU, no background throttling, capped JS heap.
func (p *Pool) launchEngine() (*Engine, error) {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("mute-audio"))
	l.Set(flags.Flag("js-flags"), "--max-old-space-size=256")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, err
	}

	eng := &Engine{
		ID:      p.nextID.Add(1),
		browser: b,
		pages:   rod.NewPagePool(p.cfg.PagesPerEngine),
	}
	slog.Debug("rendering engine launched", "engine_id", eng.ID)
	return eng, nil
}

func (p *Pool) registerEngine(e *Engine) {
	p.mu.Lock()
	p.engines[e.ID] = e
	p.mu.Unlock()
}

// Acquire blocks until an engine is available, the configured acquire
// timeout fires (pool-exhausted), or ctx is cancelled.
func (p *Pool) Acquire(ctx context.Context) (*Engine, error) {
	start := time.Now()
	timeout := p.cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case eng := <-p.idle:
		p.recordAcquire(start)
		return eng, nil
	case <-timer.C:
		return nil, models.NewTaskError(models.ErrKindRendering,
			"browser pool exhausted: no engine available within acquire timeout", nil)
	case <-ctx.Done():
		return nil, models.NewTaskError(models.ErrKindTimeout,
			"acquisition cancelled", ctx.Err())
	}
}

func (p *Pool) recordAcquire(start time.Time) {
	p.totalAcquisitions.Add(1)
	active := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if active <= peak || p.peak.CompareAndSwap(peak, active) {
			break
		}
	}

	p.waitMu.Lock()
	p.waitSamples[p.waitNext] = float64(time.Since(start).Milliseconds())
	p.waitNext++
	if p.waitNext == len(p.waitSamples) {
		p.waitNext = 0
		p.waitFilled = true
	}
	p.waitMu.Unlock()
}

// Release returns an engine to the pool. A disconnected or explicitly
// unhealthy engine is closed and transparently replaced by a fresh one
// with the same startup flags, so total_engines never drops.
func (p *Pool) Release(e *Engine, healthy bool) {
	p.active.Add(-1)

	if healthy && e.Healthy() {
		p.idle <- e
		return
	}

	slog.Warn("replacing dead rendering engine", "engine_id", e.ID)
	p.destroyEngine(e)

	fresh, err := p.launchEngine()
	if err != nil {
		// Retry once after a pause; a pool that silently shrinks would
		// violate the replacement invariant.
		slog.Error("engine relaunch failed, retrying", "error", err)
		time.Sleep(time.Second)
		fresh, err = p.launchEngine()
		if err != nil {
			slog.Error("engine relaunch failed permanently", "error", err)
			return
		}
	}
	p.registerEngine(fresh)
	p.idle <- fresh
}

func (p *Pool) destroyEngine(e *Engine) {
	p.mu.Lock()
	delete(p.engines, e.ID)
	p.mu.Unlock()

	e.pages.Cleanup(func(pg *rod.Page) { _ = pg.Close() })
	_ = e.browser.Close()
}

// Stats returns a snapshot of pool utilization.
func (p *Pool) Stats() models.PoolStats {
	p.mu.Lock()
	total := len(p.engines)
	p.mu.Unlock()

	active := int(p.active.Load())
	available := total - active
	if available < 0 {
		available = 0
	}

	return models.PoolStats{
		TotalEngines:      total,
		Active:            active,
		Available:         available,
		TotalAcquisitions: p.totalAcquisitions.Load(),
		AverageWaitMs:     p.averageWaitMs(),
		PeakConcurrentUse: int(p.peak.Load()),
	}
}

func (p *Pool) averageWaitMs() float64 {
	p.waitMu.Lock()
	defer p.waitMu.Unlock()

	n := p.waitNext
	if p.waitFilled {
		n = len(p.waitSamples)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += p.waitSamples[i]
	}
	return sum / float64(n)
}

// Close drains the idle queue and closes every engine once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	engines := make([]*Engine, 0, len(p.engines))
	for _, e := range p.engines {
		engines = append(engines, e)
	}
	p.engines = make(map[int64]*Engine)
	p.mu.Unlock()

	// Drain idle references; the authoritative set was captured above.
drain:
	for {
		select {
		case <-p.idle:
		default:
			break drain
		}
	}

	for _, e := range engines {
		e.pages.Cleanup(func(pg *rod.Page) { _ = pg.Close() })
		_ = e.browser.Close()
	}
	slog.Info("browser pool closed", "engines", len(engines))
}
