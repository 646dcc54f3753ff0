// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import "unsafe"

// PoolOptions configures pool creation.
type PoolOptions[T comparable] struct {
	capacity int
	policy   EvictionPolicy

	// Listeners registered before the pool is shared
	claimed     []SlotListener[T]
	released    []SlotListener[T]
	claimFailed []SlotListener[T]
}

// PoolBuilder creates pools with fluent configuration.
//
// Example:
//
//	// Bounded cache of connections, oldest evicted first
//	p := lfc.NewPoolBuilder[*Conn](64).
//	    Policy(lfc.EvictOldest).
//	    OnReleased(func(ev lfc.SlotEvent[*Conn]) { log.Println("evicted", ev.Index) }).
//	    Build()
//
//	// Fixed pool that refuses overflow
//	p := lfc.NewPoolBuilder[int](8).Policy(lfc.Reject).Build()
type PoolBuilder[T comparable] struct {
	opts PoolOptions[T]
}

// NewPoolBuilder creates a pool builder with the given capacity and the
// EvictOldest policy.
//
// Panics if capacity < 1.
func NewPoolBuilder[T comparable](capacity int) *PoolBuilder[T] {
	if capacity < 1 {
		panic("lfc: pool capacity must be >= 1")
	}
	return &PoolBuilder[T]{opts: PoolOptions[T]{capacity: capacity}}
}

// Policy sets what the pool does when every slot is claimed.
func (b *PoolBuilder[T]) Policy(p EvictionPolicy) *PoolBuilder[T] {
	b.opts.policy = p
	return b
}

// OnClaimed registers a listener for slot claims.
func (b *PoolBuilder[T]) OnClaimed(fn SlotListener[T]) *PoolBuilder[T] {
	b.opts.claimed = append(b.opts.claimed, fn)
	return b
}

// OnReleased registers a listener for slot releases and evictions.
func (b *PoolBuilder[T]) OnReleased(fn SlotListener[T]) *PoolBuilder[T] {
	b.opts.released = append(b.opts.released, fn)
	return b
}

// OnClaimFailed registers a listener for values the pool did not store.
func (b *PoolBuilder[T]) OnClaimFailed(fn SlotListener[T]) *PoolBuilder[T] {
	b.opts.claimFailed = append(b.opts.claimFailed, fn)
	return b
}

// Build creates the Pool.
func (b *PoolBuilder[T]) Build() *Pool[T] {
	p := newPool[T](b.opts.capacity, b.opts.policy)
	for _, fn := range b.opts.claimed {
		p.onClaimed.add(fn)
	}
	for _, fn := range b.opts.released {
		p.onReleased.add(fn)
	}
	for _, fn := range b.opts.claimFailed {
		p.onClaimFailed.add(fn)
	}
	return p
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
