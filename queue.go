// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is an unbounded lock-free multi-producer multi-consumer FIFO queue.
//
// Based on the Michael-Scott algorithm. The queue always holds a dummy head
// node; values live in head.next onward. The tail pointer may lag one node
// behind the real tail; any operation that observes a non-nil tail.next
// helps advance it before retrying.
//
// Memory: one heap node per element. There is no capacity and Enqueue
// never fails.
type Queue[T any] struct {
	_       pad
	head    atomic.Pointer[node[T]] // Consumer side, always the dummy
	_       padPtr
	tail    atomic.Pointer[node[T]] // Producer side, may lag
	_       padPtr
	count   atomix.Int64
	_       padShort
	version atomix.Uint64
	_       padShort
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	dummy := &node[T]{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends value at the tail of the queue.
func (q *Queue[T]) Enqueue(value T) {
	n := newNode(value)
	sw := spin.Wait{}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail is lagging: help it forward and retry.
			q.tail.CompareAndSwap(tail, next)
			sw.Once()
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			// Best effort; a failure means someone already helped.
			q.tail.CompareAndSwap(tail, n)
			q.count.AddAcqRel(1)
			q.version.AddAcqRel(1)
			return
		}
		sw.Once()
	}
}

// Dequeue removes and returns the value at the head of the queue.
// Returns (zero-value, false) if the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	sw := spin.Wait{}
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				var zero T
				return zero, false
			}
			q.tail.CompareAndSwap(tail, next)
			sw.Once()
			continue
		}
		if next == nil {
			// head moved between our loads.
			continue
		}
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			q.count.AddAcqRel(-1)
			q.version.AddAcqRel(1)
			return value, true
		}
		sw.Once()
	}
}

// Peek returns the value at the head of the queue without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	for {
		head := q.head.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			var zero T
			return zero, false
		}
		return next.value, true
	}
}

// Clear drops every value reachable when it runs. The last node becomes the
// new dummy. Enqueues racing with Clear may survive it.
func (q *Queue[T]) Clear() {
	q.drop()
}

// drop is Clear that returns exactly how many values it unlinked.
func (q *Queue[T]) drop() int64 {
	sw := spin.Wait{}
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		if next := tail.next.Load(); next != nil {
			q.tail.CompareAndSwap(tail, next)
			sw.Once()
			continue
		}
		if head == tail {
			return 0
		}
		var dropped int64
		for n := head; n != tail && n != nil; n = n.next.Load() {
			dropped++
		}
		if q.head.CompareAndSwap(head, tail) {
			q.count.AddAcqRel(-dropped)
			q.version.AddAcqRel(1)
			return dropped
		}
		sw.Once()
	}
}

// Len returns the approximate number of values.
func (q *Queue[T]) Len() int {
	return int(max(q.count.LoadAcquire(), 0))
}

// IsEmpty reports whether the queue has no value after the dummy.
func (q *Queue[T]) IsEmpty() bool {
	return q.head.Load().next.Load() == nil
}

// Version returns the mutation generation.
func (q *Queue[T]) Version() uint64 {
	return q.version.LoadAcquire()
}

// Iter returns a fail-fast iterator from head to tail.
func (q *Queue[T]) Iter() *Iterator[T] {
	var cur *node[T]
	started := false
	return newIterator(&q.version, func() (T, bool) {
		if !started {
			cur = q.head.Load()
			started = true
		}
		if cur != nil {
			cur = cur.next.Load()
		}
		if cur == nil {
			var zero T
			return zero, false
		}
		return cur.value, true
	})
}

// ToSlice returns the values from head to tail.
func (q *Queue[T]) ToSlice() ([]T, error) {
	return drain(q.Iter(), q.Len())
}
