// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"fmt"
	"math/bits"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MaxLevels is the largest number of priority levels a PriorityQueue
// supports: one bit per level in the occupancy bitmap.
const MaxLevels = 64

// maxDequeueRetries bounds how often Dequeue retries after finding a set
// bit over a bucket that turned out empty.
const maxDequeueRetries = 8

// PriorityQueue is an unbounded lock-free queue with a fixed number of
// discrete priority levels. Lower numbers dequeue first.
//
// Each level is an independent [Queue]. A 64-bit occupancy bitmap records
// which levels are believed non-empty, so the lowest occupied level is
// found with a single trailing-zero count.
//
// The bitmap is a hint. A bit is set only after the value is reachable in
// its bucket, and cleared only after its bucket was seen empty; between
// those points it may be stale in either direction. Under heavy contention
// Dequeue may give up after a small retry budget and report empty although
// a bucket holds values.
//
// Ordering: values within one level dequeue in FIFO order; across levels
// dequeues are in non-decreasing priority for operations that do not race.
type PriorityQueue[T any] struct {
	_       pad
	bitmap  atomix.Uint64
	_       padShort
	count   atomix.Int64
	_       padShort
	version atomix.Uint64
	_       padShort
	buckets []*Queue[T]
}

// NewPriorityQueue creates a priority queue with the given number of levels.
// Panics if levels is not in [1, MaxLevels].
func NewPriorityQueue[T any](levels int) *PriorityQueue[T] {
	if levels < 1 || levels > MaxLevels {
		panic("lfc: priority levels must be in [1, 64]")
	}
	pq := &PriorityQueue[T]{buckets: make([]*Queue[T], levels)}
	for i := range pq.buckets {
		pq.buckets[i] = NewQueue[T]()
	}
	return pq
}

// Enqueue adds value at the given priority.
// Returns ErrPriorityOutOfRange without mutating if priority is invalid.
func (pq *PriorityQueue[T]) Enqueue(value T, priority int) error {
	if priority < 0 || priority >= len(pq.buckets) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrPriorityOutOfRange, priority, len(pq.buckets))
	}
	pq.buckets[priority].Enqueue(value)
	// Publish the bit only once the value is reachable.
	pq.setBit(priority)
	pq.count.AddAcqRel(1)
	pq.version.AddAcqRel(1)
	return nil
}

// Dequeue removes and returns a value from the lowest occupied level.
// Returns (zero-value, false) if the queue is empty.
func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	v, _, ok := pq.TryDequeue()
	return v, ok
}

// TryDequeue removes and returns a value from the lowest occupied level
// together with its priority.
// Returns (zero-value, -1, false) if the queue is empty or the retry budget
// ran out under contention.
func (pq *PriorityQueue[T]) TryDequeue() (value T, priority int, ok bool) {
	sw := spin.Wait{}
	for retries := 0; retries < maxDequeueRetries; {
		bm := pq.bitmap.LoadAcquire()
		if bm == 0 {
			break
		}
		level := bits.TrailingZeros64(bm)
		bit := uint64(1) << level
		if pq.bitmap.LoadAcquire()&bit == 0 {
			// A racing dequeuer cleared it; look again.
			continue
		}
		bucket := pq.buckets[level]
		if v, got := bucket.Dequeue(); got {
			pq.count.AddAcqRel(-1)
			pq.version.AddAcqRel(1)
			if bucket.IsEmpty() {
				pq.clearBit(level)
			}
			return v, level, true
		}
		// The bucket was drained by someone who has not cleared the bit yet.
		pq.clearBit(level)
		retries++
		sw.Once()
	}
	var zero T
	return zero, -1, false
}

// Peek returns the value that Dequeue would most likely return, without
// removing it.
func (pq *PriorityQueue[T]) Peek() (value T, priority int, ok bool) {
	bm := pq.bitmap.LoadAcquire()
	for bm != 0 {
		level := bits.TrailingZeros64(bm)
		if v, got := pq.buckets[level].Peek(); got {
			return v, level, true
		}
		bm &^= uint64(1) << level
	}
	var zero T
	return zero, -1, false
}

// Levels returns the number of priority levels.
func (pq *PriorityQueue[T]) Levels() int {
	return len(pq.buckets)
}

// Len returns the approximate number of values across all levels.
func (pq *PriorityQueue[T]) Len() int {
	return int(max(pq.count.LoadAcquire(), 0))
}

// LenAt returns the approximate number of values at priority.
// Returns 0 for an invalid priority.
func (pq *PriorityQueue[T]) LenAt(priority int) int {
	if priority < 0 || priority >= len(pq.buckets) {
		return 0
	}
	return pq.buckets[priority].Len()
}

// IsEmpty reports whether no level is marked occupied.
func (pq *PriorityQueue[T]) IsEmpty() bool {
	return pq.bitmap.LoadAcquire() == 0
}

// Version returns the mutation generation.
func (pq *PriorityQueue[T]) Version() uint64 {
	return pq.version.LoadAcquire()
}

// Clear empties every level.
func (pq *PriorityQueue[T]) Clear() {
	var dropped int64
	for level, bucket := range pq.buckets {
		// Enqueue counts a value only after linking it, so subtracting what
		// the bucket unlinked keeps count exact once writers are done.
		dropped += bucket.drop()
		pq.clearBit(level)
	}
	if dropped > 0 {
		pq.count.AddAcqRel(-dropped)
	}
	pq.version.AddAcqRel(1)
}

// Iter returns a fail-fast iterator over all values, lowest priority level
// first and FIFO within a level.
func (pq *PriorityQueue[T]) Iter() *Iterator[T] {
	level := -1
	var cur *node[T]
	return newIterator(&pq.version, func() (T, bool) {
		if cur != nil {
			cur = cur.next.Load()
		}
		for cur == nil {
			level++
			if level >= len(pq.buckets) {
				var zero T
				return zero, false
			}
			cur = pq.buckets[level].head.Load().next.Load()
		}
		return cur.value, true
	})
}

// ToSlice returns all values in Iter order.
func (pq *PriorityQueue[T]) ToSlice() ([]T, error) {
	return drain(pq.Iter(), pq.Len())
}

func (pq *PriorityQueue[T]) setBit(level int) {
	bit := uint64(1) << level
	sw := spin.Wait{}
	for {
		old := pq.bitmap.LoadAcquire()
		if old&bit != 0 || pq.bitmap.CompareAndSwapAcqRel(old, old|bit) {
			return
		}
		sw.Once()
	}
}

// clearBit clears the level bit, then restores it if a value raced into the
// bucket, so a non-empty bucket is never left unmarked.
func (pq *PriorityQueue[T]) clearBit(level int) {
	bit := uint64(1) << level
	sw := spin.Wait{}
	for {
		old := pq.bitmap.LoadAcquire()
		if old&bit == 0 || pq.bitmap.CompareAndSwapAcqRel(old, old&^bit) {
			break
		}
		sw.Once()
	}
	if !pq.buckets[level].IsEmpty() {
		pq.setBit(level)
	}
}
