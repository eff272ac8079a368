package scrape

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer spreads navigations to the same domain over time so batches do
// not hammer a single origin. Each domain gets its own token bucket.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewPacer allows perSecond sustained navigations per domain with the
// given burst headroom.
func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Wait blocks until the target domain's bucket grants a token or ctx is
// cancelled. Unparseable URLs pass through unpaced; validation rejects
// them later anyway.
func (p *Pacer) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return p.limiterFor(strings.ToLower(u.Hostname())).Wait(ctx)
}

func (p *Pacer) limiterFor(domain string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[domain]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[domain] = l
	}
	return l
}

// Sweep drops buckets that are fully refilled, meaning the domain has
// been idle long enough that keeping state buys nothing.
func (p *Pacer) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for domain, l := range p.limiters {
		if l.Tokens() >= float64(p.burst) {
			delete(p.limiters, domain)
			removed++
		}
	}
	return removed
}
