package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("mode = %q", cfg.Server.Mode)
	}
	if cfg.Browser.MaxConcurrentRequests != 5 {
		t.Errorf("max concurrent = %d", cfg.Browser.MaxConcurrentRequests)
	}
	if cfg.Browser.AcquireTimeout != 30*time.Second {
		t.Errorf("acquire timeout = %v", cfg.Browser.AcquireTimeout)
	}
	if cfg.Cache.DefaultTTL != time.Hour {
		t.Errorf("cache ttl = %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Cache.CompressionIntent != "balanced" {
		t.Errorf("compression = %q", cfg.Cache.CompressionIntent)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.Batch.MaxURLs != 100 {
		t.Errorf("batch max urls = %d", cfg.Batch.MaxURLs)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log = %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCRAPINIUM_PORT", "9090")
	t.Setenv("SCRAPINIUM_MODE", "debug")
	t.Setenv("SCRAPINIUM_CACHE_TTL", "30m")
	t.Setenv("SCRAPINIUM_REDIS_ADDR", "redis:6379")
	t.Setenv("SCRAPINIUM_RATELIMIT_ENABLED", "false")
	t.Setenv("SCRAPINIUM_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "debug" {
		t.Errorf("mode = %q", cfg.Server.Mode)
	}
	if cfg.Cache.DefaultTTL != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("redis addr = %q", cfg.Cache.RedisAddr)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting should be disabled via env")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoad_YAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 7000\n  mode: test\ncache:\n  max_entries: 42\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCRAPINIUM_CONFIG", path)
	t.Setenv("SCRAPINIUM_PORT", "7777")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, env must win over the file", cfg.Server.Port)
	}
	if cfg.Server.Mode != "test" {
		t.Errorf("mode = %q, file must win over defaults", cfg.Server.Mode)
	}
	if cfg.Cache.MaxEntries != 42 {
		t.Errorf("cache max entries = %d", cfg.Cache.MaxEntries)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("SCRAPINIUM_CONFIG", "/nonexistent/config.yaml")
	if _, err := Load(); err == nil {
		t.Error("missing config file should be an error")
	}
}

func TestLoad_InvalidEnvValueFallsBack(t *testing.T) {
	t.Setenv("SCRAPINIUM_PORT", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default on unparseable env", cfg.Server.Port)
	}
}

func TestEnginePoolSize(t *testing.T) {
	tests := []struct {
		name          string
		maxConcurrent int
		poolSize      int
		want          int
	}{
		{"derived below cap", 2, 0, 2},
		{"derived capped at 3", 8, 0, 3},
		{"zero concurrency floors at 1", 0, 0, 1},
		{"explicit override", 2, 4, 4},
		{"override hard-capped at 5", 2, 9, 5},
	}

	for _, tt := range tests {
		b := BrowserConfig{MaxConcurrentRequests: tt.maxConcurrent, PoolSize: tt.poolSize}
		if got := b.EnginePoolSize(); got != tt.want {
			t.Errorf("%s: EnginePoolSize() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
