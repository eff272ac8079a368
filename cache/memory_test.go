package cache

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestMemoryTier_GetSet(t *testing.T) {
	tier := newMemoryTier(10, 1<<20)
	tier.set("k", []byte("value"), algoNone, time.Minute)

	got, algo, ok := tier.get("k")
	if !ok {
		t.Fatal("miss on fresh entry")
	}
	if string(got) != "value" || algo != algoNone {
		t.Errorf("got %q/%q", got, algo)
	}
	if _, _, ok := tier.get("absent"); ok {
		t.Error("hit on absent key")
	}
}

func TestMemoryTier_ExpiryOnAccess(t *testing.T) {
	tier := newMemoryTier(10, 1<<20)
	tier.set("k", []byte("v"), algoNone, -time.Second)

	if _, _, ok := tier.get("k"); ok {
		t.Error("expired entry returned")
	}
	if entries, _, _ := tier.stats(); entries != 0 {
		t.Errorf("expired entry not removed eagerly, entries = %d", entries)
	}
}

func TestMemoryTier_EntryBudgetEviction(t *testing.T) {
	tier := newMemoryTier(3, 1<<20)
	for i := 0; i < 3; i++ {
		tier.set(fmt.Sprintf("k%d", i), []byte("v"), algoNone, time.Minute)
	}

	// Touch k1 and k2 so k0 carries the lowest score.
	tier.get("k1")
	tier.get("k1")
	tier.get("k2")

	tier.set("k3", []byte("v"), algoNone, time.Minute)

	if entries, _, _ := tier.stats(); entries != 3 {
		t.Fatalf("entries = %d, want 3", entries)
	}
	if _, _, ok := tier.get("k0"); ok {
		t.Error("lowest-scored entry k0 should have been evicted")
	}
	if _, _, ok := tier.get("k1"); !ok {
		t.Error("frequently hit entry k1 should survive")
	}
}

func TestMemoryTier_ByteBudgetEviction(t *testing.T) {
	tier := newMemoryTier(100, 30)
	tier.set("a", make([]byte, 20), algoNone, time.Minute)
	tier.set("b", make([]byte, 20), algoNone, time.Minute)

	entries, bytes, evictions := tier.stats()
	if bytes > 30 {
		t.Errorf("totalBytes = %d, budget 30 exceeded", bytes)
	}
	if entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}
	if evictions != 1 {
		t.Errorf("evictions = %d, want 1", evictions)
	}
}

func TestMemoryTier_OverwriteAdjustsBytes(t *testing.T) {
	tier := newMemoryTier(10, 1<<20)
	tier.set("k", make([]byte, 100), algoNone, time.Minute)
	tier.set("k", make([]byte, 10), algoNone, time.Minute)

	if _, bytes, _ := tier.stats(); bytes != 10 {
		t.Errorf("totalBytes = %d, want 10 after overwrite", bytes)
	}
}

func TestMemoryTier_PurgeExpired(t *testing.T) {
	tier := newMemoryTier(10, 1<<20)
	tier.set("live", []byte("v"), algoNone, time.Hour)
	tier.set("dead1", []byte("v"), algoNone, -time.Second)
	tier.set("dead2", []byte("v"), algoNone, -time.Second)

	if removed := tier.purgeExpired(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, _, ok := tier.get("live"); !ok {
		t.Error("live entry removed by purge")
	}
}

func TestMemoryTier_DeleteAndClear(t *testing.T) {
	tier := newMemoryTier(10, 1<<20)
	tier.set("a", []byte("v"), algoNone, time.Minute)
	tier.set("b", []byte("v"), algoNone, time.Minute)

	if !tier.delete("a") {
		t.Error("delete of existing key returned false")
	}
	if tier.delete("a") {
		t.Error("second delete returned true")
	}
	if n := tier.clear(); n != 1 {
		t.Errorf("clear = %d, want 1", n)
	}
	if _, bytes, _ := tier.stats(); bytes != 0 {
		t.Errorf("totalBytes = %d after clear", bytes)
	}
}

func TestEntryScore_PrefersHotSmallRecent(t *testing.T) {
	now := time.Now()
	hot := &entry{Size: 100, HitCount: 10, LastAccess: now}
	cold := &entry{Size: 100, HitCount: 0, LastAccess: now.Add(-time.Hour)}

	if hot.score(now) <= cold.score(now) {
		t.Error("hot recent entry must outscore cold stale one")
	}

	small := &entry{Size: 10, HitCount: 1, LastAccess: now}
	large := &entry{Size: 10000, HitCount: 1, LastAccess: now}
	if small.score(now) <= large.score(now) {
		t.Error("small entry must outscore large one at equal heat")
	}
}

func TestEntryScore_LinearAgeDecay(t *testing.T) {
	now := time.Now()
	fresh := &entry{Size: 100, LastAccess: now}
	mid := &entry{Size: 100, LastAccess: now.Add(-12 * time.Hour)}
	old := &entry{Size: 100, LastAccess: now.Add(-25 * time.Hour)}

	got, want := mid.score(now), fresh.score(now)/2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score at half the horizon = %v, want %v", got, want)
	}
	if got := old.score(now); got != 0 {
		t.Errorf("score beyond the horizon = %v, want 0", got)
	}
}

func TestMemoryTier_InsertNeverEvictsItself(t *testing.T) {
	tier := newMemoryTier(2, 1<<20)
	tier.set("a", []byte("v"), algoNone, time.Minute)
	tier.set("b", []byte("v"), algoNone, time.Minute)
	tier.get("a")
	tier.get("a")
	tier.get("b")
	tier.get("b")

	// The newcomer scores below both residents but must still land.
	tier.set("big", make([]byte, 4096), algoNone, time.Minute)

	if _, _, ok := tier.get("big"); !ok {
		t.Error("just-inserted entry was evicted by its own insertion")
	}
	if entries, _, _ := tier.stats(); entries != 2 {
		t.Errorf("entries = %d, want 2", entries)
	}
}
