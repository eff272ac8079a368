// Package cache provides the two-tier artifact cache: a bounded
// in-process tier with score-based eviction, and an optional Redis
// tier shared across instances. Values above 1 KiB are stored
// compressed; the algorithm follows the configured intent.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2501Pr0ject/Scrapinium-sub000/config"
	"github.com/2501Pr0ject/Scrapinium-sub000/models"
)

// Manager coordinates the cache tiers. A memory hit never touches the
// network; a remote hit is promoted into the memory tier; writes go to
// memory synchronously and to Redis in the background.
type Manager struct {
	cfg    config.CacheConfig
	comp   *compressor
	mem    *memoryTier
	remote *remoteTier

	requests atomic.Int64
	hits     atomic.Int64
}

// New builds the cache from config. A missing Redis address disables
// the remote tier; an unreachable Redis is an error because a
// configured tier that silently no-ops would mask deployment mistakes.
func New(cfg config.CacheConfig) (*Manager, error) {
	comp, err := newCompressor(cfg.CompressionIntent)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:  cfg,
		comp: comp,
		mem:  newMemoryTier(cfg.MaxEntries, cfg.MaxBytes),
	}

	if cfg.RedisAddr != "" {
		remote, err := newRemoteTier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		m.remote = remote
		slog.Info("cache: remote tier enabled", "addr", cfg.RedisAddr)
	}
	return m, nil
}

// Get returns the decoded artifact for key, consulting memory then the
// remote tier. Remote failures degrade to a miss.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	m.requests.Add(1)

	if stored, algo, ok := m.mem.get(key); ok {
		value, err := m.comp.decompress(stored, algo)
		if err != nil {
			slog.Warn("cache: dropping undecodable memory entry",
				"key", key, "error", err)
			m.mem.delete(key)
			return nil, false
		}
		m.hits.Add(1)
		return value, true
	}

	if m.remote == nil {
		return nil, false
	}

	stored, algo, found, err := m.remote.get(ctx, key)
	if err != nil {
		slog.Warn("cache: remote get failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	value, err := m.comp.decompress(stored, algo)
	if err != nil {
		slog.Warn("cache: dropping undecodable remote entry",
			"key", key, "error", err)
		go func() { _ = m.remote.delete(context.Background(), key) }()
		return nil, false
	}

	// Promote so the next read is served locally.
	m.mem.set(key, stored, algo, m.cfg.DefaultTTL)
	m.hits.Add(1)
	return value, true
}

// Set stores the artifact in the memory tier and, when enabled, writes
// to the remote tier asynchronously so the request path never blocks on
// Redis.
func (m *Manager) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	stored, algo := m.comp.compress(value)
	m.mem.set(key, stored, algo, ttl)

	if m.remote == nil {
		return
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.remote.set(wctx, key, stored, algo, ttl); err != nil {
			slog.Warn("cache: remote set failed", "key", key, "error", err)
		}
	}()
}

// Delete removes the key from both tiers and reports whether any tier
// held it.
func (m *Manager) Delete(ctx context.Context, key string) bool {
	removed := m.mem.delete(key)
	if m.remote != nil {
		if err := m.remote.delete(ctx, key); err != nil {
			slog.Warn("cache: remote delete failed", "key", key, "error", err)
		}
	}
	return removed
}

// Clear empties both tiers and returns the number of memory entries
// removed.
func (m *Manager) Clear(ctx context.Context) int {
	n := m.mem.clear()
	if m.remote != nil {
		if _, err := m.remote.clear(ctx); err != nil {
			slog.Warn("cache: remote clear failed", "error", err)
		}
	}
	return n
}

// PurgeExpired drops expired memory entries. Redis expires its own.
func (m *Manager) PurgeExpired() int {
	return m.mem.purgeExpired()
}

// Stats snapshots cache effectiveness counters.
func (m *Manager) Stats(ctx context.Context) models.CacheStats {
	entries, bytes, evictions := m.mem.stats()

	requests := m.requests.Load()
	hits := m.hits.Load()
	hitRate := 0.0
	if requests > 0 {
		hitRate = float64(hits) / float64(requests)
	}

	stats := models.CacheStats{
		MemoryEntries:  entries,
		MemoryBytes:    bytes,
		RemoteEnabled:  m.remote != nil,
		HitRate:        hitRate,
		TotalRequests:  requests,
		TotalHits:      hits,
		TotalEvictions: evictions,
	}
	if m.remote != nil {
		stats.RemoteStats = m.remote.stats(ctx)
	}
	return stats
}

// Close releases the remote connection.
func (m *Manager) Close() {
	if m.remote != nil {
		_ = m.remote.close()
	}
}
