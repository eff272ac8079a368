package ratelimit

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// burstSpan is the short-window span used for burst detection.
const burstSpan = 10 * time.Second

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int       // per-minute limit of the matched class
	Remaining  int       // remaining in the minute window
	Reset      time.Time // when the minute window frees its oldest slot
	RetryAfter time.Duration
	Reason     string // set when denied: "burst", "minute", "hour", "day", "blocked", "abuse"
}

// client is the per-identity limiter state.
type client struct {
	minute *window
	hour   *window
	day    *window
	burst  *window

	abuseScore   float64
	blockedUntil time.Time

	lastRequest time.Time
	gaps        []float64 // ring of inter-request gaps, seconds
	gapNext     int
	lastSeen    time.Time
}

func newClient() *client {
	return &client{
		minute: newWindow(time.Minute),
		hour:   newWindow(time.Hour),
		day:    newWindow(24 * time.Hour),
		burst:  newWindow(burstSpan),
		gaps:   make([]float64, 0, gapSampleSize),
	}
}

// Limiter tracks every active client. Idle clients are dropped by the
// periodic sweep.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client

	totalAllowed atomic.Int64
	totalDenied  atomic.Int64
	totalBlocked atomic.Int64
}

func New() *Limiter {
	return &Limiter{clients: make(map[string]*client)}
}

// Allow runs the full admission pipeline for one request: active block,
// abuse scoring, burst window, then minute/hour/day windows. A denied
// request is not recorded in the windows, so being limited does not
// consume quota.
func (l *Limiter) Allow(clientID string, class Class, o Observation) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[clientID]
	if !ok {
		c = newClient()
		l.clients[clientID] = c
	}
	c.lastSeen = now

	if now.Before(c.blockedUntil) {
		l.totalDenied.Add(1)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			Remaining:  0,
			RetryAfter: c.blockedUntil.Sub(now),
			Reason:     "blocked",
		}
	}

	c.observeGap(now)
	c.abuseScore = emaWeight*c.abuseScore + (1-emaWeight)*instantScore(o, c.gaps)
	if c.abuseScore > blockScore {
		c.blockedUntil = now.Add(abuseBlockFor)
		l.totalBlocked.Add(1)
		l.totalDenied.Add(1)
		slog.Warn("rate limiter: abusive client blocked",
			"client", clientID, "score", c.abuseScore)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			RetryAfter: abuseBlockFor,
			Reason:     "abuse",
		}
	}

	if c.burst.count(now) >= class.Burst {
		l.totalDenied.Add(1)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			Remaining:  remaining(class.PerMinute, c.minute.count(now)),
			RetryAfter: c.burst.retryAfter(now),
			Reason:     "burst",
		}
	}

	if c.minute.count(now) >= class.PerMinute {
		l.totalDenied.Add(1)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			Remaining:  0,
			RetryAfter: c.minute.retryAfter(now),
			Reason:     "minute",
		}
	}

	if c.hour.count(now) >= class.PerHour {
		l.totalDenied.Add(1)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			Remaining:  0,
			RetryAfter: c.hour.retryAfter(now),
			Reason:     "hour",
		}
	}

	if c.day.count(now) >= class.PerDay {
		// Exhausting a full day of quota is treated as sustained abuse,
		// not ordinary bursting, hence the extended block.
		c.blockedUntil = now.Add(class.BlockFor * 4)
		l.totalBlocked.Add(1)
		l.totalDenied.Add(1)
		slog.Warn("rate limiter: daily quota exhausted, client blocked",
			"client", clientID, "class", class.Name)
		return Decision{
			Allowed:    false,
			Limit:      class.PerMinute,
			Remaining:  0,
			RetryAfter: class.BlockFor * 4,
			Reason:     "day",
		}
	}

	c.burst.record(now)
	c.minute.record(now)
	c.hour.record(now)
	c.day.record(now)
	l.totalAllowed.Add(1)

	return Decision{
		Allowed:   true,
		Limit:     class.PerMinute,
		Remaining: remaining(class.PerMinute, c.minute.count(now)),
		Reset:     now.Add(c.minute.retryAfter(now)),
	}
}

func remaining(limit, used int) int {
	r := limit - used
	if r < 0 {
		return 0
	}
	return r
}

// observeGap records the inter-request gap into the bounded ring.
func (c *client) observeGap(now time.Time) {
	if !c.lastRequest.IsZero() {
		gap := now.Sub(c.lastRequest).Seconds()
		if len(c.gaps) < gapSampleSize {
			c.gaps = append(c.gaps, gap)
		} else {
			c.gaps[c.gapNext] = gap
			c.gapNext = (c.gapNext + 1) % gapSampleSize
		}
	}
	c.lastRequest = now
}

// Sweep drops clients with no recent activity and no active block.
// Driven by the maintenance scheduler.
func (l *Limiter) Sweep() int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, c := range l.clients {
		if now.Before(c.blockedUntil) {
			continue
		}
		if now.Sub(c.lastSeen) > time.Hour && c.day.empty(now) {
			delete(l.clients, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("rate limiter: swept idle clients", "removed", removed)
	}
	return removed
}

// Stats reports limiter counters for the operational endpoints.
func (l *Limiter) Stats() map[string]any {
	l.mu.Lock()
	active := len(l.clients)
	blocked := 0
	now := time.Now()
	for _, c := range l.clients {
		if now.Before(c.blockedUntil) {
			blocked++
		}
	}
	l.mu.Unlock()

	return map[string]any{
		"active_clients":  active,
		"blocked_clients": blocked,
		"total_allowed":   l.totalAllowed.Load(),
		"total_denied":    l.totalDenied.Load(),
		"total_blocks":    l.totalBlocked.Load(),
	}
}
