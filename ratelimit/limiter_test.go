package ratelimit

import (
	"strings"
	"testing"
	"time"
)

// browserObs looks like an ordinary browser request so the abuse scorer
// stays quiet in window-focused tests.
func browserObs() Observation {
	return Observation{
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
		Path:       "/api/v1/tasks",
		HeaderSize: 400,
	}
}

func TestAllow_WithinBudget(t *testing.T) {
	l := New()
	d := l.Allow("c1", ClassDefault, browserObs())

	if !d.Allowed {
		t.Fatalf("first request denied: %+v", d)
	}
	if d.Limit != ClassDefault.PerMinute {
		t.Errorf("limit = %d", d.Limit)
	}
	if d.Remaining != ClassDefault.PerMinute-1 {
		t.Errorf("remaining = %d, want %d", d.Remaining, ClassDefault.PerMinute-1)
	}
	now := time.Now()
	if d.Reset.Before(now) || d.Reset.After(now.Add(time.Minute)) {
		t.Errorf("reset = %v, want within the next minute", d.Reset)
	}
}

func TestAllow_BurstDenied(t *testing.T) {
	l := New()
	class := ClassScraping // burst of 5 in 10s

	for i := 0; i < class.Burst; i++ {
		if d := l.Allow("c1", class, browserObs()); !d.Allowed {
			t.Fatalf("request %d denied: %+v", i, d)
		}
	}

	d := l.Allow("c1", class, browserObs())
	if d.Allowed {
		t.Fatal("burst overflow was allowed")
	}
	if d.Reason != "burst" {
		t.Errorf("reason = %q, want burst", d.Reason)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > burstSpan {
		t.Errorf("retry after = %v", d.RetryAfter)
	}
}

func TestAllow_DeniedRequestConsumesNoQuota(t *testing.T) {
	l := New()
	class := Class{Name: "tiny", PerMinute: 100, PerHour: 100, PerDay: 100, Burst: 1, BlockFor: time.Minute}

	l.Allow("c1", class, browserObs())
	denied := l.Allow("c1", class, browserObs())
	if denied.Allowed {
		t.Fatal("second request should trip the burst limit")
	}

	// The denial must not have consumed minute quota.
	c := l.clients["c1"]
	if got := c.minute.count(time.Now()); got != 1 {
		t.Errorf("minute count = %d, want 1", got)
	}
}

func TestAllow_MinuteCap(t *testing.T) {
	l := New()
	class := Class{Name: "t", PerMinute: 3, PerHour: 100, PerDay: 100, Burst: 100, BlockFor: time.Minute}

	for i := 0; i < 3; i++ {
		if d := l.Allow("c1", class, browserObs()); !d.Allowed {
			t.Fatalf("request %d denied", i)
		}
	}
	d := l.Allow("c1", class, browserObs())
	if d.Allowed || d.Reason != "minute" {
		t.Errorf("decision = %+v, want minute denial", d)
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d", d.Remaining)
	}
}

func TestAllow_DayBreachExtendedBlock(t *testing.T) {
	l := New()
	class := Class{Name: "t", PerMinute: 100, PerHour: 100, PerDay: 2, Burst: 100, BlockFor: 15 * time.Minute}

	l.Allow("c1", class, browserObs())
	l.Allow("c1", class, browserObs())

	d := l.Allow("c1", class, browserObs())
	if d.Allowed || d.Reason != "day" {
		t.Fatalf("decision = %+v, want day denial", d)
	}
	if d.RetryAfter != class.BlockFor*4 {
		t.Errorf("retry after = %v, want %v", d.RetryAfter, class.BlockFor*4)
	}

	// Subsequent requests hit the active block.
	d = l.Allow("c1", class, browserObs())
	if d.Allowed || d.Reason != "blocked" {
		t.Errorf("decision = %+v, want blocked", d)
	}
}

func TestAllow_AbuseBlocksAttackPath(t *testing.T) {
	l := New()
	obs := Observation{
		UserAgent:  "",
		Path:       "/api/v1/../../etc/passwd",
		RawQuery:   "q=" + strings.Repeat("A", 2100),
		HeaderSize: 9000,
	}

	// Missing UA, traversal markers, an oversized URL and bloated headers
	// score 12 per request; the EMA crosses the threshold of 10 after a
	// handful of observations.
	var d Decision
	for i := 0; i < 20; i++ {
		d = l.Allow("c1", ClassDefault, obs)
		if !d.Allowed {
			break
		}
	}
	if d.Allowed {
		t.Fatal("attack traffic never blocked")
	}
	if d.Reason != "abuse" {
		t.Errorf("reason = %q, want abuse", d.Reason)
	}
	if d.RetryAfter != abuseBlockFor {
		t.Errorf("retry after = %v, want %v", d.RetryAfter, abuseBlockFor)
	}
}

func TestAllow_BenignTrafficNeverAbuseBlocked(t *testing.T) {
	l := New()
	class := Class{Name: "t", PerMinute: 1000, PerHour: 10000, PerDay: 100000, Burst: 1000, BlockFor: time.Minute}

	for i := 0; i < 100; i++ {
		d := l.Allow("c1", class, browserObs())
		if !d.Allowed {
			t.Fatalf("benign request %d denied: %+v", i, d)
		}
	}
}

func TestInstantScore_Signals(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want float64
	}{
		{"empty ua", Observation{Path: "/x"}, 3},
		{"short ua", Observation{UserAgent: "bot", Path: "/x"}, 2},
		{"curl", Observation{UserAgent: "curl/8.4.0 full length here", Path: "/x"}, 2},
		{"sqli", Observation{UserAgent: browserObs().UserAgent, Path: "/x", RawQuery: "q=union select 1"}, 5},
		{"oversized headers", Observation{UserAgent: browserObs().UserAgent, Path: "/x", HeaderSize: 9000}, 2},
		{"clean", browserObs(), 0},
	}

	for _, tt := range tests {
		if got := instantScore(tt.obs, nil); got != tt.want {
			t.Errorf("%s: score = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInstantScore_MachineRegularPacing(t *testing.T) {
	regular := make([]float64, gapSampleSize)
	for i := range regular {
		regular[i] = 1.0
	}
	if got := instantScore(browserObs(), regular); got != 3 {
		t.Errorf("score = %v, want 3 for rapid zero-variance gaps", got)
	}

	// A partial sample must not trigger the pacing signal.
	if got := instantScore(browserObs(), regular[:gapSampleSize-1]); got != 0 {
		t.Errorf("score = %v, want 0 for partial sample", got)
	}

	// A steady but slow cadence is polling, not automation abuse.
	slow := make([]float64, gapSampleSize)
	for i := range slow {
		slow[i] = 10.0
	}
	if got := instantScore(browserObs(), slow); got != 0 {
		t.Errorf("score = %v, want 0 for slow regular gaps", got)
	}

	// Jittery human-paced traffic stays unscored even when rapid.
	jittery := []float64{0.2, 1.8, 0.5, 3.1, 0.9, 2.4, 0.1, 1.2, 2.9, 0.7}
	if got := instantScore(browserObs(), jittery); got != 0 {
		t.Errorf("score = %v, want 0 for jittery gaps", got)
	}
}

func TestWindow_PruneAndRetryAfter(t *testing.T) {
	w := newWindow(time.Minute)
	now := time.Now()

	w.record(now.Add(-2 * time.Minute))
	w.record(now.Add(-30 * time.Second))
	w.record(now)

	if got := w.count(now); got != 2 {
		t.Errorf("count = %d, want 2 after pruning", got)
	}

	wait := w.retryAfter(now)
	if wait <= 29*time.Second || wait > 30*time.Second {
		t.Errorf("retryAfter = %v, want ~30s", wait)
	}
}

func TestClientID_DeterministicAndStable(t *testing.T) {
	a := ClientID("10.0.0.1", "Mozilla/5.0")
	b := ClientID("10.0.0.1", "Mozilla/5.0")
	c := ClientID("10.0.0.2", "Mozilla/5.0")

	if a != b {
		t.Error("same inputs produced different ids")
	}
	if a == c {
		t.Error("different IPs produced the same id")
	}
	if len(a) != 16 {
		t.Errorf("id length = %d, want 16", len(a))
	}

	// Only the first 50 bytes of the user agent participate.
	long := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 suffix-one"
	longer := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 suffix-two"
	if ClientID("10.0.0.1", long) != ClientID("10.0.0.1", longer) {
		t.Error("user agent beyond 50 bytes should not affect the id")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/scrape", "scraping"},
		{"/api/v1/scrape/batch", "scraping"},
		{"/api/v1/maintenance/gc", "maintenance"},
		{"/api/v1/cache/:key", "maintenance"},
		{"/api/v1/tasks", "default"},
		{"/api/v1/stats", "default"},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got.Name != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got.Name, tt.want)
		}
	}
}

func TestSweep_DropsIdleKeepsBlocked(t *testing.T) {
	l := New()
	l.Allow("idle", ClassDefault, browserObs())
	l.Allow("blocked", ClassDefault, browserObs())

	l.mu.Lock()
	stale := time.Now().Add(-2 * time.Hour)
	idle := l.clients["idle"]
	idle.lastSeen = stale
	idle.day = newWindow(24 * time.Hour) // no recent activity

	blocked := l.clients["blocked"]
	blocked.lastSeen = stale
	blocked.day = newWindow(24 * time.Hour)
	blocked.blockedUntil = time.Now().Add(time.Hour)
	l.mu.Unlock()

	if removed := l.Sweep(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	l.mu.Lock()
	_, idleOK := l.clients["idle"]
	_, blockedOK := l.clients["blocked"]
	l.mu.Unlock()

	if idleOK {
		t.Error("idle client survived the sweep")
	}
	if !blockedOK {
		t.Error("blocked client must survive the sweep")
	}
}

func TestStats_Counters(t *testing.T) {
	l := New()
	class := Class{Name: "t", PerMinute: 1, PerHour: 10, PerDay: 10, Burst: 10, BlockFor: time.Minute}

	l.Allow("c1", class, browserObs())
	l.Allow("c1", class, browserObs()) // minute denial

	stats := l.Stats()
	if stats["active_clients"] != 1 {
		t.Errorf("active = %v", stats["active_clients"])
	}
	if stats["total_allowed"] != int64(1) || stats["total_denied"] != int64(1) {
		t.Errorf("allowed=%v denied=%v", stats["total_allowed"], stats["total_denied"])
	}
}
