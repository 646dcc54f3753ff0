// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// List is an unordered lock-free list that appends at its logical tail and
// deletes by value.
//
// Deletion has two phases. Remove first marks the node (a single CAS from
// live to marked; exactly one remover wins). From that moment the node is
// excluded from every read: Contains, First, Last, At, Len and iteration.
// The remover then freezes the node by appending a marker cell after it and
// tries to splice it out of the chain. A failed splice is tolerated; any
// later Add or Remove that walks past the node completes it.
//
// The marker cell makes the frozen next pointer immutable, so an Add that
// raced with the deletion either links before the freeze (and survives the
// splice) or fails its CAS and rescans.
type List[T comparable] struct {
	_       pad
	head    *node[T] // sentinel
	tail    *node[T] // sentinel, next is always nil
	count   atomix.Int64
	_       padShort
	version atomix.Uint64
	_       padShort
}

// NewList creates an empty list.
func NewList[T comparable]() *List[T] {
	l := &List[T]{
		head: &node[T]{},
		tail: &node[T]{},
	}
	l.head.next.Store(l.tail)
	return l
}

// Add appends value after the last live node.
func (l *List[T]) Add(value T) {
	n := newNode(value)
	n.next.Store(l.tail)
	sw := spin.Wait{}
	for {
		pred := l.lastLive()
		if pred.next.CompareAndSwap(l.tail, n) {
			l.count.AddAcqRel(1)
			l.version.AddAcqRel(1)
			return
		}
		sw.Once()
	}
}

// Remove deletes the first live node holding value. It reports whether a
// node was deleted by this call.
func (l *List[T]) Remove(value T) bool {
	pred := l.head
	cur := pred.next.Load()
	for cur != l.tail {
		switch {
		case cur.isMarker():
			cur = cur.next.Load()
		case cur.isMarked():
			cur = l.unlink(pred, cur)
		case cur.value == value && cur.mark():
			l.count.AddAcqRel(-1)
			l.version.AddAcqRel(1)
			l.unlink(pred, cur)
			return true
		default:
			pred = cur
			cur = cur.next.Load()
		}
	}
	return false
}

// Contains reports whether a live node holds value.
func (l *List[T]) Contains(value T) bool {
	for n := l.firstLive(); n != nil; n = l.nextLive(n) {
		if n.value == value {
			return true
		}
	}
	return false
}

// First returns the value of the first live node.
func (l *List[T]) First() (T, bool) {
	if n := l.firstLive(); n != nil {
		return n.value, true
	}
	var zero T
	return zero, false
}

// Last returns the value of the last live node.
func (l *List[T]) Last() (T, bool) {
	var last *node[T]
	for n := l.firstLive(); n != nil; n = l.nextLive(n) {
		last = n
	}
	if last == nil {
		var zero T
		return zero, false
	}
	return last.value, true
}

// At returns the value of the live node at index.
// Returns (zero-value, false) if index is out of range.
func (l *List[T]) At(index int) (T, bool) {
	if index >= 0 {
		i := 0
		for n := l.firstLive(); n != nil; n = l.nextLive(n) {
			if i == index {
				return n.value, true
			}
			i++
		}
	}
	var zero T
	return zero, false
}

// Clear marks every live node, then sweeps the chain once.
func (l *List[T]) Clear() {
	var removed int64
	for n := l.firstLive(); n != nil; n = l.nextLive(n) {
		if n.mark() {
			removed++
		}
	}
	if removed == 0 {
		return
	}
	l.count.AddAcqRel(-removed)
	l.version.AddAcqRel(1)
	l.lastLive()
}

// Len returns the approximate number of live values.
func (l *List[T]) Len() int {
	return int(max(l.count.LoadAcquire(), 0))
}

// Version returns the mutation generation.
func (l *List[T]) Version() uint64 {
	return l.version.LoadAcquire()
}

// Iter returns a fail-fast iterator over live values in list order.
func (l *List[T]) Iter() *Iterator[T] {
	var cur *node[T]
	started := false
	return newIterator(&l.version, func() (T, bool) {
		if !started {
			cur = l.firstLive()
			started = true
		} else if cur != nil {
			cur = l.nextLive(cur)
		}
		if cur == nil {
			var zero T
			return zero, false
		}
		return cur.value, true
	})
}

// ToSlice returns the live values in list order.
func (l *List[T]) ToSlice() ([]T, error) {
	return drain(l.Iter(), l.Len())
}

// lastLive walks the chain, splicing out marked nodes, and returns the last
// live node (or the head sentinel).
func (l *List[T]) lastLive() *node[T] {
	pred := l.head
	cur := pred.next.Load()
	for cur != l.tail {
		switch {
		case cur.isMarker():
			cur = cur.next.Load()
		case cur.isMarked():
			cur = l.unlink(pred, cur)
		default:
			pred = cur
			cur = cur.next.Load()
		}
	}
	return pred
}

// unlink freezes the marked node cur and tries to splice it out after pred.
// It returns cur's frozen successor so the caller can keep walking.
func (l *List[T]) unlink(pred, cur *node[T]) *node[T] {
	succ := freeze(cur)
	if pred.next.CompareAndSwap(cur, succ) {
		cur.state.StoreRelease(nodeUnlinked)
	}
	return succ
}

// freeze appends a marker after the marked node n unless one is already
// there, and returns n's successor past the marker.
func freeze[T any](n *node[T]) *node[T] {
	sw := spin.Wait{}
	for {
		next := n.next.Load()
		if next.isMarker() {
			return next.next.Load()
		}
		m := &node[T]{}
		m.state.StoreRelaxed(nodeMarker)
		m.next.Store(next)
		if n.next.CompareAndSwap(next, m) {
			return next
		}
		sw.Once()
	}
}

// firstLive returns the first live node, or nil.
func (l *List[T]) firstLive() *node[T] {
	return l.skipDead(l.head.next.Load())
}

// nextLive returns the live node after n, or nil.
func (l *List[T]) nextLive(n *node[T]) *node[T] {
	return l.skipDead(n.next.Load())
}

func (l *List[T]) skipDead(n *node[T]) *node[T] {
	for n != l.tail {
		if !n.isMarker() && !n.isMarked() {
			return n
		}
		n = n.next.Load()
	}
	return nil
}
