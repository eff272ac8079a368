package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// RenderOptions tune a single page render.
type RenderOptions struct {
	// Stealth injects webdriver-masking JS before navigation.
	Stealth bool

	// RemoveOverlays strips cookie banners and modal overlays after load.
	RemoveOverlays bool

	// Timeout bounds the whole render. Zero means the pool's default.
	Timeout time.Duration
}

// RenderResult is the raw outcome of one page render, before any
// content extraction.
type RenderResult struct {
	RawHTML    string
	Title      string
	FinalURL   string
	StatusCode int
}

// animationZeroJS neutralizes CSS animations and transitions so DOM
// stability converges fast on animation-heavy pages. Installed before
// navigation so it applies from the first paint.
const animationZeroJS = `() => {
	const install = () => {
		const style = document.createElement('style');
		style.textContent = '*,*::before,*::after{' +
			'animation-duration:0s!important;animation-delay:0s!important;' +
			'transition-duration:0s!important;transition-delay:0s!important}';
		(document.head || document.documentElement).appendChild(style);
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', install);
	} else {
		install();
	}
}`

// Render navigates a reusable rendering context inside the given engine
// to targetURL and returns the rendered DOM.
//
// Lifecycle order matters: stealth and the request interceptor must be
// installed before Navigate, and the about:blank cleanup uses the
// original page reference so it succeeds even after the request context
// expires.
func (p *Pool) Render(ctx context.Context, eng *Engine, targetURL string, opts RenderOptions) (*RenderResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := eng.pages.Get(func() (*rod.Page, error) {
		return eng.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewTaskError(models.ErrKindRendering,
			"failed to acquire rendering context", err)
	}

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("page cleanup failed", "error", navErr)
		}
		eng.pages.Put(page)
	}()

	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without",
				"error", evalErr)
		}
	}
	if _, evalErr := page.EvalOnNewDocument(animationZeroJS); evalErr != nil {
		slog.Debug("animation-zeroing injection failed", "error", evalErr)
	}

	if u, parseErr := url.Parse(targetURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			},
		}.Call(page)
	}

	router := p.installHijack(page)
	defer func() { _ = router.Stop() }()

	pg := page.Context(ctx)

	if navErr := pg.Navigate(targetURL); navErr != nil {
		return nil, categorizeNavError(navErr, "navigation to target URL failed")
	}

	// Wait for the DOM to settle. WaitRequestIdle conflicts with the
	// Fetch domain used by HijackRequests on recent Chromium, so DOM
	// stability is the signal.
	if stableErr := pg.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("DOM did not stabilize, proceeding with current state",
			"error", stableErr)
	}

	statusCode := 0
	if res, evalErr := pg.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	if opts.RemoveOverlays {
		removeOverlays(pg)
	}

	rawHTML, htmlErr := pg.HTML()
	if htmlErr != nil {
		return nil, categorizeNavError(htmlErr, "failed to extract rendered DOM")
	}

	title := evalStringOrEmpty(pg, `() => document.title`)
	finalURL := evalStringOrEmpty(pg, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}

	return &RenderResult{
		RawHTML:    rawHTML,
		Title:      title,
		FinalURL:   finalURL,
		StatusCode: statusCode,
	}, nil
}

// removeOverlays strips fixed/sticky elements with high z-index plus
// common consent-banner selectors, then restores body scrolling.
func removeOverlays(pg *rod.Page) {
	const js = `() => {
		const els = document.querySelectorAll('*');
		for (const el of els) {
			const style = window.getComputedStyle(el);
			const pos = style.position;
			if (pos === 'fixed' || pos === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900 || style.zIndex === 'auto') {
					el.remove();
				}
			}
		}
		const selectors = [
			'[class*="cookie"]', '[class*="consent"]', '[class*="overlay"]',
			'[id*="cookie"]', '[id*="consent"]', '[id*="overlay"]',
			'[class*="popup"]', '[id*="popup"]',
			'[class*="gdpr"]', '[id*="gdpr"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const style = window.getComputedStyle(el);
				if (style.position === 'fixed' || style.position === 'sticky' || style.position === 'absolute') {
					el.remove();
				}
			});
		}
		document.documentElement.style.overflow = '';
		document.body.style.overflow = '';
	}`
	_, _ = pg.Eval(js)
}

func evalStringOrEmpty(pg *rod.Page, js string) string {
	res, err := pg.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeNavError wraps raw rod errors into typed task errors so the
// API layer can map them to HTTP statuses.
func categorizeNavError(err error, msg string) *models.TaskError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewTaskError(models.ErrKindTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewTaskError(models.ErrKindTimeout, "render cancelled", err)
	default:
		return models.NewTaskError(models.ErrKindNetwork, msg, err)
	}
}
