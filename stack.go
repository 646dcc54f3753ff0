// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Stack is an unbounded lock-free LIFO stack.
//
// Based on Treiber's stack: the top pointer is the only shared entry point
// and every mutation is a single CAS on it. Push and Pop retry unboundedly
// and are lock-free; Contains, ToSlice and Iter are traversals of a chain
// that may be changing underneath them.
//
// The zero value is an empty stack ready for use.
type Stack[T comparable] struct {
	_       pad
	top     atomic.Pointer[node[T]]
	_       padPtr
	count   atomix.Int64
	_       padShort
	version atomix.Uint64
	_       padShort
}

// NewStack creates an empty stack.
func NewStack[T comparable]() *Stack[T] {
	return &Stack[T]{}
}

// Push places value on top of the stack.
func (s *Stack[T]) Push(value T) {
	n := newNode(value)
	sw := spin.Wait{}
	for {
		top := s.top.Load()
		n.next.Store(top)
		if s.top.CompareAndSwap(top, n) {
			s.count.AddAcqRel(1)
			s.version.AddAcqRel(1)
			return
		}
		sw.Once()
	}
}

// PushRange pushes values so that the last one ends on top. The batch is
// linked with a single CAS, so concurrent readers see all of it or none.
func (s *Stack[T]) PushRange(values ...T) {
	if len(values) == 0 {
		return
	}
	first := newNode(values[0])
	last := first
	for _, v := range values[1:] {
		n := newNode(v)
		n.next.Store(last)
		last = n
	}
	sw := spin.Wait{}
	for {
		top := s.top.Load()
		first.next.Store(top)
		if s.top.CompareAndSwap(top, last) {
			s.count.AddAcqRel(int64(len(values)))
			s.version.AddAcqRel(1)
			return
		}
		sw.Once()
	}
}

// Pop removes and returns the top value.
// Returns (zero-value, false) if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	sw := spin.Wait{}
	for {
		top := s.top.Load()
		if top == nil {
			var zero T
			return zero, false
		}
		if s.top.CompareAndSwap(top, top.next.Load()) {
			s.count.AddAcqRel(-1)
			s.version.AddAcqRel(1)
			return top.value, true
		}
		sw.Once()
	}
}

// PopRange pops up to n values, top first. It stops early when the stack
// runs empty.
func (s *Stack[T]) PopRange(n int) []T {
	out := make([]T, 0, max(n, 0))
	for range n {
		v, ok := s.Pop()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Peek returns the top value without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	top := s.top.Load()
	if top == nil {
		var zero T
		return zero, false
	}
	return top.value, true
}

// Contains reports whether value is in the stack. The answer is a
// best-effort view and may be stale by the time it is returned.
func (s *Stack[T]) Contains(value T) bool {
	for n := s.top.Load(); n != nil; n = n.next.Load() {
		if n.value == value {
			return true
		}
	}
	return false
}

// Clear drops the whole chain. A Push racing with Clear may land on either
// side of it.
func (s *Stack[T]) Clear() {
	top := s.top.Swap(nil)
	if top == nil {
		return
	}
	var dropped int64
	for n := top; n != nil; n = n.next.Load() {
		dropped++
	}
	s.count.AddAcqRel(-dropped)
	s.version.AddAcqRel(1)
}

// Len returns the approximate number of values.
func (s *Stack[T]) Len() int {
	return int(max(s.count.LoadAcquire(), 0))
}

// IsEmpty reports whether the stack has no top node.
func (s *Stack[T]) IsEmpty() bool {
	return s.top.Load() == nil
}

// Version returns the mutation generation.
func (s *Stack[T]) Version() uint64 {
	return s.version.LoadAcquire()
}

// Iter returns a fail-fast iterator from top to bottom.
func (s *Stack[T]) Iter() *Iterator[T] {
	// Load the top after the iterator captured its version.
	var cur *node[T]
	started := false
	return newIterator(&s.version, func() (T, bool) {
		if !started {
			cur = s.top.Load()
			started = true
		} else if cur != nil {
			cur = cur.next.Load()
		}
		if cur == nil {
			var zero T
			return zero, false
		}
		return cur.value, true
	})
}

// ToSlice returns the values from top to bottom.
func (s *Stack[T]) ToSlice() ([]T, error) {
	return drain(s.Iter(), s.Len())
}
