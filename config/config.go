package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Transform TransformConfig `yaml:"transform"`
	Batch     BatchConfig     `yaml:"batch"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8000
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// MaxRequestSize refuses request bodies above this size (bytes).
	MaxRequestSize int64 `yaml:"max_request_size"` // default: 10 MiB

	// CORSOrigins is the explicit allow-list for CORS. Credentials are
	// always disabled.
	CORSOrigins []string `yaml:"cors_origins"`

	Debug bool `yaml:"debug"` // expose error details in responses
}

// BrowserConfig controls the rendering-engine pool.
type BrowserConfig struct {
	// MaxConcurrentRequests bounds simultaneous renders; the engine pool
	// size derives from it: min(MaxConcurrentRequests, 3), capped at 5.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"` // default: 5

	// PoolSize overrides the derived engine count when > 0.
	PoolSize int `yaml:"pool_size"`

	// PagesPerEngine is the rendering-context pool capacity per engine.
	PagesPerEngine int `yaml:"pages_per_engine"` // default: 3

	// AcquireTimeout bounds Acquire() before pool-exhausted is reported.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"` // default: 30s

	Headless   bool   `yaml:"headless"`    // default: true
	NoSandbox  bool   `yaml:"no_sandbox"`  // default: true
	BrowserBin string `yaml:"browser_bin"` // optional chromium path

	// BlockedResourceTypes lists request resource types to abort.
	// default: ["Image", "Media", "Font"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`

	// BlockedDomains is the tracker/advertising deny-list. Empty means
	// use the built-in list.
	BlockedDomains []string `yaml:"blocked_domains"`

	// BlockedURLParts aborts any request whose URL contains one of these
	// substrings. default: ["analytics", "tracking", "pixel", "beacon"]
	BlockedURLParts []string `yaml:"blocked_url_parts"`
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// RequestTimeout is the per-navigation deadline.
	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 30s

	// MaxContentSize truncates rendered HTML beyond this many bytes.
	MaxContentSize int `yaml:"max_content_size"` // default: 10 MiB

	// MaxLinks / MaxImages cap the page harvest.
	MaxLinks  int `yaml:"max_links"`  // default: 50
	MaxImages int `yaml:"max_images"` // default: 20

	// DomainRatePerSecond paces navigations per target domain.
	DomainRatePerSecond float64 `yaml:"domain_rate_per_second"` // default: 2
	DomainBurst         int     `yaml:"domain_burst"`           // default: 4
}

// CacheConfig controls the artifact cache tiers.
type CacheConfig struct {
	// MaxEntries bounds the memory tier.
	MaxEntries int `yaml:"max_entries"` // default: 1000

	// MaxBytes bounds the memory tier by total artifact size.
	MaxBytes int64 `yaml:"max_bytes"` // default: 256 MiB

	// DefaultTTL applies when a set carries no TTL.
	DefaultTTL time.Duration `yaml:"default_ttl"` // default: 1h

	// RedisAddr enables the distributed tier when non-empty.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// CompressionIntent selects the compressor: "speed", "size",
	// "balanced". default: "balanced"
	CompressionIntent string `yaml:"compression_intent"`
}

// RateLimitConfig controls per-client admission.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"` // default: true

	// MaxRequestSize refuses oversize requests before rate accounting.
	MaxRequestSize int64 `yaml:"max_request_size"` // default: 10 MiB
}

// TransformConfig controls the optional external transform.
type TransformConfig struct {
	// BaseURL is the OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url"` // default: "http://localhost:11434/v1"
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // default: "llama3.1:8b"

	// Timeout bounds one transform call.
	Timeout time.Duration `yaml:"timeout"` // default: 60s

	// MaxPromptChars truncates content before the transform prompt.
	MaxPromptChars int `yaml:"max_prompt_chars"` // default: 8000
}

// BatchConfig controls batch execution defaults.
type BatchConfig struct {
	MaxURLs              int           `yaml:"max_urls"`               // default: 100
	DefaultParallelLimit int           `yaml:"default_parallel_limit"` // default: 3
	PerURLEstimate       time.Duration `yaml:"per_url_estimate"`       // default: 10s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Load reads configuration from an optional YAML file (SCRAPINIUM_CONFIG)
// overlaid by environment variables with sane defaults. Environment
// always wins over the file.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SCRAPINIUM_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			Mode:           "release",
			MaxRequestSize: 10 << 20,
			CORSOrigins:    []string{"http://localhost:3000"},
		},
		Browser: BrowserConfig{
			MaxConcurrentRequests: 5,
			PagesPerEngine:        3,
			AcquireTimeout:        30 * time.Second,
			Headless:              true,
			NoSandbox:             true,
			BlockedResourceTypes:  []string{"Image", "Media", "Font"},
			BlockedURLParts:       []string{"analytics", "tracking", "pixel", "beacon"},
		},
		Scraper: ScraperConfig{
			RequestTimeout:      30 * time.Second,
			MaxContentSize:      10 << 20,
			MaxLinks:            50,
			MaxImages:           20,
			DomainRatePerSecond: 2,
			DomainBurst:         4,
		},
		Cache: CacheConfig{
			MaxEntries:        1000,
			MaxBytes:          256 << 20,
			DefaultTTL:        time.Hour,
			CompressionIntent: "balanced",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			MaxRequestSize: 10 << 20,
		},
		Transform: TransformConfig{
			BaseURL:        "http://localhost:11434/v1",
			Model:          "llama3.1:8b",
			Timeout:        60 * time.Second,
			MaxPromptChars: 8000,
		},
		Batch: BatchConfig{
			MaxURLs:              100,
			DefaultParallelLimit: 3,
			PerURLEstimate:       10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = envOr("SCRAPINIUM_HOST", cfg.Server.Host)
	cfg.Server.Port = envIntOr("SCRAPINIUM_PORT", cfg.Server.Port)
	cfg.Server.Mode = envOr("SCRAPINIUM_MODE", cfg.Server.Mode)
	cfg.Server.MaxRequestSize = envInt64Or("SCRAPINIUM_MAX_REQUEST_SIZE", cfg.Server.MaxRequestSize)
	cfg.Server.CORSOrigins = envSliceOr("SCRAPINIUM_CORS_ORIGINS", cfg.Server.CORSOrigins)
	cfg.Server.Debug = envBoolOr("SCRAPINIUM_DEBUG", cfg.Server.Debug)

	cfg.Browser.MaxConcurrentRequests = envIntOr("SCRAPINIUM_MAX_CONCURRENT", cfg.Browser.MaxConcurrentRequests)
	cfg.Browser.PoolSize = envIntOr("SCRAPINIUM_POOL_SIZE", cfg.Browser.PoolSize)
	cfg.Browser.PagesPerEngine = envIntOr("SCRAPINIUM_PAGES_PER_ENGINE", cfg.Browser.PagesPerEngine)
	cfg.Browser.AcquireTimeout = envDurationOr("SCRAPINIUM_ACQUIRE_TIMEOUT", cfg.Browser.AcquireTimeout)
	cfg.Browser.Headless = envBoolOr("SCRAPINIUM_HEADLESS", cfg.Browser.Headless)
	cfg.Browser.NoSandbox = envBoolOr("SCRAPINIUM_NO_SANDBOX", cfg.Browser.NoSandbox)
	cfg.Browser.BrowserBin = envOr("SCRAPINIUM_BROWSER_BIN", cfg.Browser.BrowserBin)
	cfg.Browser.BlockedResourceTypes = envSliceOr("SCRAPINIUM_BLOCKED_RESOURCES", cfg.Browser.BlockedResourceTypes)
	cfg.Browser.BlockedDomains = envSliceOr("SCRAPINIUM_BLOCKED_DOMAINS", cfg.Browser.BlockedDomains)
	cfg.Browser.BlockedURLParts = envSliceOr("SCRAPINIUM_BLOCKED_URL_PARTS", cfg.Browser.BlockedURLParts)

	cfg.Scraper.RequestTimeout = envDurationOr("SCRAPINIUM_REQUEST_TIMEOUT", cfg.Scraper.RequestTimeout)
	cfg.Scraper.MaxContentSize = envIntOr("SCRAPINIUM_MAX_CONTENT_SIZE", cfg.Scraper.MaxContentSize)

	cfg.Cache.MaxEntries = envIntOr("SCRAPINIUM_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.MaxBytes = envInt64Or("SCRAPINIUM_CACHE_MAX_BYTES", cfg.Cache.MaxBytes)
	cfg.Cache.DefaultTTL = envDurationOr("SCRAPINIUM_CACHE_TTL", cfg.Cache.DefaultTTL)
	cfg.Cache.RedisAddr = envOr("SCRAPINIUM_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envOr("SCRAPINIUM_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = envIntOr("SCRAPINIUM_REDIS_DB", cfg.Cache.RedisDB)
	cfg.Cache.CompressionIntent = envOr("SCRAPINIUM_COMPRESSION", cfg.Cache.CompressionIntent)

	cfg.RateLimit.Enabled = envBoolOr("SCRAPINIUM_RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.MaxRequestSize = envInt64Or("SCRAPINIUM_RATELIMIT_MAX_SIZE", cfg.RateLimit.MaxRequestSize)

	cfg.Transform.BaseURL = envOr("SCRAPINIUM_TRANSFORM_URL", cfg.Transform.BaseURL)
	cfg.Transform.APIKey = envOr("SCRAPINIUM_TRANSFORM_API_KEY", cfg.Transform.APIKey)
	cfg.Transform.Model = envOr("SCRAPINIUM_TRANSFORM_MODEL", cfg.Transform.Model)
	cfg.Transform.Timeout = envDurationOr("SCRAPINIUM_TRANSFORM_TIMEOUT", cfg.Transform.Timeout)

	cfg.Batch.MaxURLs = envIntOr("SCRAPINIUM_BATCH_MAX_URLS", cfg.Batch.MaxURLs)

	cfg.Log.Level = envOr("SCRAPINIUM_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("SCRAPINIUM_LOG_FORMAT", cfg.Log.Format)
}

// EnginePoolSize derives the rendering-engine count:
// min(max_concurrent_requests, 3), hard-capped at 5, unless PoolSize
// overrides it.
func (b BrowserConfig) EnginePoolSize() int {
	if b.PoolSize > 0 {
		if b.PoolSize > 5 {
			return 5
		}
		return b.PoolSize
	}
	n := b.MaxConcurrentRequests
	if n > 3 {
		n = 3
	}
	if n < 1 {
		n = 1
	}
	return n
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
