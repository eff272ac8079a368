package ratelimit

import "time"

// window is a sliding time window holding request timestamps. Old
// timestamps are pruned on every observation, so the count is always
// exact over the span (no fixed-bucket boundary error).
type window struct {
	span  time.Duration
	times []time.Time
}

func newWindow(span time.Duration) *window {
	return &window{span: span}
}

// prune drops timestamps older than the span.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.times) && !w.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.times = w.times[i:]
	}
}

// count returns the number of requests inside the window at now.
func (w *window) count(now time.Time) int {
	w.prune(now)
	return len(w.times)
}

// record appends a request timestamp.
func (w *window) record(now time.Time) {
	w.times = append(w.times, now)
}

// retryAfter reports how long until the oldest in-window request falls
// out, freeing one slot.
func (w *window) retryAfter(now time.Time) time.Duration {
	w.prune(now)
	if len(w.times) == 0 {
		return 0
	}
	wait := w.times[0].Add(w.span).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// empty reports whether the window holds no recent activity.
func (w *window) empty(now time.Time) bool {
	return w.count(now) == 0
}
