// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc_test

import (
	"maps"
	"slices"
	"sync"
	"testing"

	"code.hybscloud.com/lfc"
)

// =============================================================================
// Cache - Basic Operations
// =============================================================================

// TestCacheGetOrAdd tests first-writer-wins insertion.
func TestCacheGetOrAdd(t *testing.T) {
	c := lfc.NewCache[string, int]()
	if got := c.GetOrAdd("k", 1); got != 1 {
		t.Fatalf("GetOrAdd(k, 1): got %d, want 1", got)
	}
	v := c.Version()
	if got := c.GetOrAdd("k", 2); got != 1 {
		t.Fatalf("GetOrAdd(k, 2): got %d, want 1", got)
	}
	if c.Version() != v {
		t.Fatalf("GetOrAdd on present key bumped version")
	}

	calls := 0
	got := c.GetOrAddFunc("k", func(string) int { calls++; return 3 })
	if got != 1 || calls != 0 {
		t.Fatalf("GetOrAddFunc on present key: got %d with %d calls", got, calls)
	}
	got = c.GetOrAddFunc("j", func(k string) int { calls++; return len(k) })
	if got != 1 || calls != 1 {
		t.Fatalf("GetOrAddFunc(j): got %d with %d calls", got, calls)
	}
}

// TestCacheAddRemove tests upsert and removal.
func TestCacheAddRemove(t *testing.T) {
	c := lfc.NewCache[int, string]()
	c.Add(1, "a")
	c.Add(1, "b")
	if v, ok := c.Get(1); !ok || v != "b" {
		t.Fatalf("Get(1): got (%q, %v), want (b, true)", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", c.Len())
	}

	if v, ok := c.Remove(1); !ok || v != "b" {
		t.Fatalf("Remove(1): got (%q, %v), want (b, true)", v, ok)
	}
	if _, ok := c.Remove(1); ok {
		t.Fatalf("second Remove(1): got ok, want !ok")
	}
	if c.ContainsKey(1) {
		t.Fatalf("ContainsKey(1) after Remove: got true, want false")
	}
}

// TestCacheRemoveRange tests batch removal with absent and duplicate keys.
func TestCacheRemoveRange(t *testing.T) {
	c := lfc.NewCache[int, int]()
	c.Append(map[int]int{1: 1, 2: 2, 3: 3})
	v := c.Version()

	if n := c.RemoveRange(1, 1, 3, 9); n != 2 {
		t.Fatalf("RemoveRange: got %d, want 2", n)
	}
	if c.Version() != v+1 {
		t.Fatalf("RemoveRange: version %d, want %d", c.Version(), v+1)
	}
	if n := c.RemoveRange(7, 8); n != 0 || c.Version() != v+1 {
		t.Fatalf("RemoveRange of absent keys: got %d, version %d", n, c.Version())
	}
	if keys := c.Keys(); !slices.Equal(keys, []int{2}) {
		t.Fatalf("Keys: got %v, want [2]", keys)
	}
}

// TestCacheGetOrUpdate tests update-only semantics and the equal-value
// short circuit.
func TestCacheGetOrUpdate(t *testing.T) {
	c := lfc.NewCache[string, int]()
	if _, ok := c.GetOrUpdate("k", 1); ok {
		t.Fatalf("GetOrUpdate on absent key: got ok, want !ok")
	}
	if c.ContainsKey("k") {
		t.Fatalf("GetOrUpdate added an absent key")
	}

	c.Add("k", 1)
	v := c.Version()
	if got, ok := c.GetOrUpdate("k", 1); !ok || got != 1 {
		t.Fatalf("GetOrUpdate(k, 1): got (%d, %v), want (1, true)", got, ok)
	}
	if c.Version() != v {
		t.Fatalf("GetOrUpdate with equal value bumped version")
	}
	if got, _ := c.GetOrUpdate("k", 2); got != 2 {
		t.Fatalf("GetOrUpdate(k, 2): got %d, want 2", got)
	}
	if c.Version() != v+1 {
		t.Fatalf("GetOrUpdate with new value: version %d, want %d", c.Version(), v+1)
	}
}

// TestCacheGetOrAddOrUpdate tests the unconditional store.
func TestCacheGetOrAddOrUpdate(t *testing.T) {
	c := lfc.NewCache[string, int]()
	if got := c.GetOrAddOrUpdate("k", 1); got != 1 {
		t.Fatalf("GetOrAddOrUpdate(k, 1): got %d, want 1", got)
	}
	v := c.Version()
	c.GetOrAddOrUpdate("k", 1)
	if c.Version() != v {
		t.Fatalf("GetOrAddOrUpdate with equal value bumped version")
	}
	if got := c.GetOrAddOrUpdate("k", 5); got != 5 {
		t.Fatalf("GetOrAddOrUpdate(k, 5): got %d, want 5", got)
	}
}

// TestCacheFuncEquality tests a cache of non-comparable values.
func TestCacheFuncEquality(t *testing.T) {
	c := lfc.NewCacheFunc[string, []int](slices.Equal[[]int, int])
	c.Add("k", []int{1, 2})
	v := c.Version()
	c.GetOrUpdate("k", []int{1, 2})
	if c.Version() != v {
		t.Fatalf("equal slice bumped version")
	}

	never := lfc.NewCacheFunc[string, []int](nil)
	never.Add("k", nil)
	v = never.Version()
	never.GetOrUpdate("k", nil)
	if never.Version() != v+1 {
		t.Fatalf("nil equal: version %d, want %d", never.Version(), v+1)
	}
}

// TestCacheClear tests Clear and the no-op on empty.
func TestCacheClear(t *testing.T) {
	c := lfc.NewCache[int, int]()
	c.Clear()
	if c.Version() != 0 {
		t.Fatalf("Clear on empty bumped version")
	}
	c.Add(1, 1)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len after Clear: got %d, want 0", c.Len())
	}
}

// =============================================================================
// Cache - Snapshot Isolation
// =============================================================================

// TestCacheSnapshotIsolation tests that an enumeration and a copy taken
// before a write do not observe it.
func TestCacheSnapshotIsolation(t *testing.T) {
	c := lfc.NewCache[int, int]()
	c.Append(map[int]int{1: 10, 2: 20})

	all := c.All()
	snap := c.Snapshot()
	c.Add(3, 30)
	c.Remove(1)

	got := maps.Collect(all)
	if !maps.Equal(got, map[int]int{1: 10, 2: 20}) {
		t.Fatalf("All: got %v, want map[1:10 2:20]", got)
	}
	snap[99] = 99
	if c.ContainsKey(99) {
		t.Fatalf("Snapshot is not a copy")
	}
	if !maps.Equal(c.Snapshot(), map[int]int{2: 20, 3: 30}) {
		t.Fatalf("Snapshot: got %v", c.Snapshot())
	}
}

// TestCacheConcurrentGetOrAdd tests that every racing GetOrAdd for one key
// returns the same winner.
func TestCacheConcurrentGetOrAdd(t *testing.T) {
	if lfc.RaceEnabled {
		t.Skip("skip: version uses atomix operations the race detector cannot observe")
	}
	const workers = 16
	c := lfc.NewCache[string, int]()
	results := make([]int, workers)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[w] = c.GetOrAdd("key", w)
		}()
	}
	wg.Wait()

	for w, got := range results {
		if got != results[0] {
			t.Fatalf("worker %d: got %d, want %d", w, got, results[0])
		}
	}
	if c.Version() != 1 {
		t.Fatalf("Version: got %d, want 1", c.Version())
	}
}
