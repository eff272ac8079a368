package cache

import (
	"sync"
	"time"
)

// entry is one cached artifact in the memory tier. Value holds the
// stored (possibly compressed) form; Algo records how to decode it.
type entry struct {
	Value      []byte
	Algo       string
	Size       int64 // stored size, the eviction denominator
	HitCount   int64
	CreatedAt  time.Time
	LastAccess time.Time
	ExpiresAt  time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// evictionHorizon is the age at which the recency weight bottoms out.
const evictionHorizon = 24 * time.Hour

// score ranks an entry for eviction: frequently hit, recently touched,
// small entries survive. The recency weight falls linearly from 1 to 0
// over evictionHorizon.
func (e *entry) score(now time.Time) float64 {
	recency := 1.0 - now.Sub(e.LastAccess).Hours()/evictionHorizon.Hours()
	if recency < 0 {
		recency = 0
	}
	size := float64(e.Size)
	if size < 1 {
		size = 1
	}
	return float64(e.HitCount+1) * recency / size
}

// memoryTier is the in-process cache tier, bounded by entry count and
// total stored bytes with score-based eviction.
type memoryTier struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	maxBytes   int64
	totalBytes int64
	evictions  int64
}

func newMemoryTier(maxEntries int, maxBytes int64) *memoryTier {
	return &memoryTier{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// get returns the stored form and its algorithm. Expired entries are
// removed eagerly on access.
func (t *memoryTier) get(key string) ([]byte, string, bool) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil, "", false
	}
	if e.expired(now) {
		t.removeLocked(key, e)
		return nil, "", false
	}
	e.HitCount++
	e.LastAccess = now
	return e.Value, e.Algo, true
}

func (t *memoryTier) set(key string, value []byte, algo string, ttl time.Duration) {
	now := time.Now()
	e := &entry{
		Value:      value,
		Algo:       algo,
		Size:       int64(len(value)),
		CreatedAt:  now,
		LastAccess: now,
		ExpiresAt:  now.Add(ttl),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.entries[key]; ok {
		t.totalBytes -= old.Size
	}
	t.entries[key] = e
	t.totalBytes += e.Size

	t.evictLocked(now, key)
}

// evictLocked removes lowest-scored entries until both budgets hold.
// Expired entries go first. The just-inserted key is never a victim of
// its own insertion.
func (t *memoryTier) evictLocked(now time.Time, keep string) {
	for key, e := range t.entries {
		if e.expired(now) {
			t.removeLocked(key, e)
			t.evictions++
		}
	}

	for len(t.entries) > t.maxEntries || t.totalBytes > t.maxBytes {
		var victimKey string
		var victim *entry
		lowest := 0.0
		for key, e := range t.entries {
			if key == keep {
				continue
			}
			s := e.score(now)
			if victim == nil || s < lowest {
				victimKey, victim, lowest = key, e, s
			}
		}
		if victim == nil {
			return
		}
		t.removeLocked(victimKey, victim)
		t.evictions++
	}
}

func (t *memoryTier) removeLocked(key string, e *entry) {
	delete(t.entries, key)
	t.totalBytes -= e.Size
}

func (t *memoryTier) delete(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	t.removeLocked(key, e)
	return true
}

func (t *memoryTier) clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.entries)
	t.entries = make(map[string]*entry)
	t.totalBytes = 0
	return n
}

// purgeExpired removes every expired entry and returns the count.
// Driven by the maintenance sweep.
func (t *memoryTier) purgeExpired() int {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, e := range t.entries {
		if e.expired(now) {
			t.removeLocked(key, e)
			removed++
		}
	}
	return removed
}

func (t *memoryTier) stats() (entries int, bytes int64, evictions int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries), t.totalBytes, t.evictions
}
