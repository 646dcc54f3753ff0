// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"iter"
	"maps"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Cache is a read-optimized associative container built on read-copy-update.
//
// The only mutable state is one atomic pointer to an immutable map. Every
// mutation loads the current map, derives a modified copy, and CASes the
// pointer from the observed map to the copy. When the CAS fails the copy is
// discarded and the whole load-derive-swap cycle runs again against the map
// that won.
//
// Reads (Get, All, Keys, Snapshot) capture one map at call start and never
// observe a partial update, so unlike the node-based containers enumeration
// cannot be torn and never fails.
//
// Writes copy the whole map; Cache suits read-mostly workloads.
type Cache[K comparable, V any] struct {
	_       pad
	snap    atomic.Pointer[map[K]V]
	_       padPtr
	version atomix.Uint64
	_       padShort
	equal   func(a, b V) bool
}

// NewCache creates an empty cache whose values compare with ==.
func NewCache[K comparable, V comparable]() *Cache[K, V] {
	return NewCacheFunc[K](func(a, b V) bool { return a == b })
}

// NewCacheFunc creates an empty cache whose values compare with equal.
// A nil equal treats every pair of values as different.
func NewCacheFunc[K comparable, V any](equal func(a, b V) bool) *Cache[K, V] {
	if equal == nil {
		equal = func(V, V) bool { return false }
	}
	c := &Cache[K, V]{equal: equal}
	m := make(map[K]V)
	c.snap.Store(&m)
	return c
}

// Get returns the value stored for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := (*c.snap.Load())[key]
	return v, ok
}

// ContainsKey reports whether key is present.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Add stores value for key, replacing any existing value.
func (c *Cache[K, V]) Add(key K, value V) {
	c.update(func(m map[K]V) (map[K]V, bool) {
		next := maps.Clone(m)
		next[key] = value
		return next, true
	})
}

// GetOrAdd returns the value stored for key, storing value first if key is
// absent. The first writer wins: once stored, later calls return the stored
// value and leave it unchanged.
func (c *Cache[K, V]) GetOrAdd(key K, value V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	return c.getOrAdd(key, value)
}

// GetOrAddFunc is GetOrAdd with a lazily built value. fn runs at most once
// per call, and only if key was absent on the fast path.
func (c *Cache[K, V]) GetOrAddFunc(key K, fn func(K) V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	return c.getOrAdd(key, fn(key))
}

func (c *Cache[K, V]) getOrAdd(key K, value V) V {
	var result V
	c.update(func(m map[K]V) (map[K]V, bool) {
		// Re-check: another writer may have inserted since the fast path.
		if v, ok := m[key]; ok {
			result = v
			return nil, false
		}
		result = value
		next := maps.Clone(m)
		next[key] = value
		return next, true
	})
	return result
}

// GetOrUpdate replaces the value of an existing key and returns the stored
// value. If the stored value already equals value the map is not swapped
// and the version does not change.
// Returns (zero-value, false) if key is absent; nothing is added.
func (c *Cache[K, V]) GetOrUpdate(key K, value V) (V, bool) {
	var (
		result V
		found  bool
	)
	c.update(func(m map[K]V) (map[K]V, bool) {
		v, ok := m[key]
		found = ok
		if !ok {
			return nil, false
		}
		if c.equal(v, value) {
			result = v
			return nil, false
		}
		result = value
		next := maps.Clone(m)
		next[key] = value
		return next, true
	})
	return result, found
}

// GetOrAddOrUpdate stores value for key whether or not key is present and
// returns the stored value. An equal stored value is kept without a swap.
func (c *Cache[K, V]) GetOrAddOrUpdate(key K, value V) V {
	var result V
	c.update(func(m map[K]V) (map[K]V, bool) {
		if v, ok := m[key]; ok && c.equal(v, value) {
			result = v
			return nil, false
		}
		result = value
		next := maps.Clone(m)
		next[key] = value
		return next, true
	})
	return result
}

// Append stores every entry of entries with a single swap, replacing
// existing values.
func (c *Cache[K, V]) Append(entries map[K]V) {
	if len(entries) == 0 {
		return
	}
	c.update(func(m map[K]V) (map[K]V, bool) {
		next := make(map[K]V, len(m)+len(entries))
		maps.Copy(next, m)
		maps.Copy(next, entries)
		return next, true
	})
}

// Remove deletes key and returns the value it held.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	var (
		old   V
		found bool
	)
	c.update(func(m map[K]V) (map[K]V, bool) {
		old, found = m[key]
		if !found {
			return nil, false
		}
		next := maps.Clone(m)
		delete(next, key)
		return next, true
	})
	return old, found
}

// RemoveRange deletes every present key with a single swap and returns how
// many were removed. Absent keys are ignored.
func (c *Cache[K, V]) RemoveRange(keys ...K) int {
	var removed int
	c.update(func(m map[K]V) (map[K]V, bool) {
		removed = 0
		for _, k := range keys {
			if _, ok := m[k]; ok {
				removed++
			}
		}
		if removed == 0 {
			return nil, false
		}
		next := maps.Clone(m)
		for _, k := range keys {
			delete(next, k)
		}
		// Duplicate keys in the argument count once.
		removed = len(m) - len(next)
		return next, true
	})
	return removed
}

// Clear swaps in an empty map.
func (c *Cache[K, V]) Clear() {
	c.update(func(m map[K]V) (map[K]V, bool) {
		if len(m) == 0 {
			return nil, false
		}
		return make(map[K]V), true
	})
}

// Snapshot returns a plain copy of the current contents. The caller owns
// the returned map.
func (c *Cache[K, V]) Snapshot() map[K]V {
	return maps.Clone(*c.snap.Load())
}

// All returns an iterator over one captured snapshot.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	m := *c.snap.Load()
	return maps.All(m)
}

// Keys returns the keys of one captured snapshot.
func (c *Cache[K, V]) Keys() []K {
	m := *c.snap.Load()
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries in the current snapshot. The count is
// exact for that snapshot, unlike the counters of the node-based containers.
func (c *Cache[K, V]) Len() int {
	return len(*c.snap.Load())
}

// Version returns the number of successful swaps.
func (c *Cache[K, V]) Version() uint64 {
	return c.version.LoadAcquire()
}

// update runs the read-derive-swap cycle. derive returns the new map and
// whether a swap is needed; it must not modify its argument.
func (c *Cache[K, V]) update(derive func(map[K]V) (map[K]V, bool)) bool {
	sw := spin.Wait{}
	for {
		old := c.snap.Load()
		next, changed := derive(*old)
		if !changed {
			return false
		}
		if c.snap.CompareAndSwap(old, &next) {
			c.version.AddAcqRel(1)
			return true
		}
		sw.Once()
	}
}
