// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// SlotEvent describes one pool slot notification.
//
// Index is -1 for a ClaimFailed event, which has no slot.
type SlotEvent[T any] struct {
	Index int
	Value T
}

// SlotListener receives pool notifications. Listeners run synchronously on
// the goroutine performing the pool operation, after the slot change is
// visible. A panicking listener propagates to that caller.
type SlotListener[T any] func(SlotEvent[T])

// listeners is a copy-on-write list of SlotListener.
type listeners[T any] struct {
	list atomic.Pointer[[]SlotListener[T]]
}

func (l *listeners[T]) add(fn SlotListener[T]) {
	if fn == nil {
		return
	}
	sw := spin.Wait{}
	for {
		old := l.list.Load()
		var next []SlotListener[T]
		if old != nil {
			next = make([]SlotListener[T], len(*old), len(*old)+1)
			copy(next, *old)
		}
		next = append(next, fn)
		if l.list.CompareAndSwap(old, &next) {
			return
		}
		sw.Once()
	}
}

func (l *listeners[T]) emit(index int, value T) {
	list := l.list.Load()
	if list == nil {
		return
	}
	ev := SlotEvent[T]{Index: index, Value: value}
	for _, fn := range *list {
		fn(ev)
	}
}
