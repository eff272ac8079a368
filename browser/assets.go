package browser

import (
	"sync"
	"time"
)

// assetMemo remembers static-asset URLs seen recently across all pages
// so repeated fetches of the same fonts and stylesheets can be aborted
// instead of re-downloaded.
type assetMemo struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func newAssetMemo(ttl time.Duration) *assetMemo {
	return &assetMemo{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// seenRecently records the URL and reports whether it was already seen
// within the TTL. The first request always passes so the page can load
// the asset once.
func (m *assetMemo) seenRecently(url string) bool {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if at, ok := m.seen[url]; ok && now.Sub(at) < m.ttl {
		return true
	}
	m.seen[url] = now

	// Opportunistic cleanup to keep the map bounded.
	if len(m.seen) > 4096 {
		for k, at := range m.seen {
			if now.Sub(at) >= m.ttl {
				delete(m.seen, k)
			}
		}
	}
	return false
}
