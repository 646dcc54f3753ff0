// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// emptyFlag marks a hint cell as empty. The remaining 63 bits store the
// round number.
const emptyFlag = 1 << 63

// freeHints remembers slot indices the pool released recently, so Add can
// try those slots before scanning the whole table.
//
// Every release offers its index and Add takes up to hintProbes of them.
// A hint can be out of date by the time it is taken: the slot may have been
// claimed again or the table may have been replaced, so the taker still
// claims it by CAS on the slot word and moves on when that fails. Offers to
// a full ring are dropped; the scan finds those slots instead.
//
// A cell holds either a slot index or emptyFlag|round, where round is the
// lap the cell expects next, so a lagging writer cannot fill a cell a lap
// late.
type freeHints struct {
	_        pad
	tail     atomix.Uint64
	_        pad
	head     atomix.Uint64
	_        pad
	buffer   []atomix.Uintptr
	mask     uint64
	capacity uint64
	order    uint64 // log2(capacity) for round calculation
}

func newFreeHints(capacity int) *freeHints {
	n := uint64(roundToPow2(capacity))
	order := uint64(0)
	for (1 << order) < n {
		order++
	}
	h := &freeHints{
		buffer:   make([]atomix.Uintptr, n),
		mask:     n - 1,
		capacity: n,
		order:    order,
	}
	for i := range h.buffer {
		h.buffer[i].StoreRelaxed(emptyFlag | 0)
	}
	return h
}

// put offers a released slot index. It returns false and drops the hint
// when the ring is full.
func (h *freeHints) put(index int) bool {
	elem := uintptr(index)
	sw := spin.Wait{}
	for {
		tail := h.tail.LoadAcquire()
		head := h.head.LoadAcquire()
		if tail != h.tail.LoadAcquire() {
			continue
		}
		if tail >= head+h.capacity {
			return false
		}

		idx := tail & h.mask
		round := (tail >> h.order) & (emptyFlag - 1)
		expected := emptyFlag | uintptr(round)

		if h.buffer[idx].CompareAndSwapAcqRel(expected, elem) {
			h.tail.CompareAndSwapAcqRel(tail, tail+1)
			return true
		}
		h.tail.CompareAndSwapAcqRel(tail, tail+1)
		sw.Once()
	}
}

// take returns the oldest hint still in the ring.
func (h *freeHints) take() (int, bool) {
	sw := spin.Wait{}
	for {
		head := h.head.LoadAcquire()
		tail := h.tail.LoadAcquire()

		idx := head & h.mask
		elem := h.buffer[idx].LoadAcquire()
		if head != h.head.LoadAcquire() {
			continue
		}
		if head >= tail {
			return 0, false
		}
		nextRound := ((head >> h.order) + 1) & (emptyFlag - 1)
		nextEmpty := emptyFlag | uintptr(nextRound)
		if elem == nextEmpty {
			h.head.CompareAndSwapAcqRel(head, head+1)
			continue
		}
		if elem&emptyFlag != 0 {
			sw.Once()
			continue
		}
		if h.buffer[idx].CompareAndSwapAcqRel(elem, nextEmpty) {
			h.head.CompareAndSwapAcqRel(head, head+1)
			return int(elem), true
		}

		h.head.CompareAndSwapAcqRel(head, head+1)
		sw.Once()
	}
}
