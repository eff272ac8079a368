package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/ratelimit"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"

func limitedRouter(cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(ratelimit.New(), cfg, nil))
	r.GET("/api/v1/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/scrape", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", browserUA)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Disabled(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: false})

	for i := 0; i < 200; i++ {
		if w := get(r, "/api/v1/tasks"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d with limiting disabled", i, w.Code)
		}
	}
}

func TestRateLimit_HeadersOnAllowed(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: true})

	w := get(r, "/api/v1/tasks")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("limit header = %q, want 60 for the default class", got)
	}
	remaining, err := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
	if err != nil || remaining != 59 {
		t.Errorf("remaining header = %q", w.Header().Get("X-RateLimit-Remaining"))
	}

	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		t.Fatalf("reset header = %q", w.Header().Get("X-RateLimit-Reset"))
	}
	now := time.Now().Unix()
	if reset < now-1 || reset > now+61 {
		t.Errorf("reset = %d, want within the next minute of %d", reset, now)
	}

	// Far from the quota floor, no warning is emitted.
	if got := w.Header().Get("X-RateLimit-Warning"); got != "" {
		t.Errorf("warning header = %q at 59/60 remaining", got)
	}
}

func TestNearLimit(t *testing.T) {
	tests := []struct {
		limit     int
		remaining int
		want      bool
	}{
		{60, 59, false},
		{60, 6, false}, // exactly 10% is not yet below it
		{60, 5, true},
		{60, 0, true},
		{10, 1, true},
		{0, 0, false},
	}
	for _, tt := range tests {
		if got := nearLimit(tt.limit, tt.remaining); got != tt.want {
			t.Errorf("nearLimit(%d, %d) = %v, want %v", tt.limit, tt.remaining, got, tt.want)
		}
	}
}

func TestRateLimit_BurstDenial(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: true})

	// The scraping class allows a burst of 5 in 10 seconds.
	var w *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", nil)
		req.Header.Set("User-Agent", browserUA)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want >= 1", w.Header().Get("Retry-After"))
	}
}

func TestRateLimit_OversizeBody(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: true, MaxRequestSize: 64})

	body := bytes.Repeat([]byte("a"), 1024)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", bytes.NewReader(body))
	req.Header.Set("User-Agent", browserUA)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestRateLimit_ClientsIndependent(t *testing.T) {
	r := limitedRouter(config.RateLimitConfig{Enabled: true})

	// Exhaust one client's scraping burst.
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", nil)
		req.Header.Set("User-Agent", browserUA)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	// A different user agent is a different client id with fresh quota.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scrape", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh) Version/17.0 Safari/605.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, second client should not share quota", w.Code)
	}
}
