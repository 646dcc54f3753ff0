// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// claimRecord identifies one claim of one slot. A record is stale once the
// slot's word no longer equals stamp.
type claimRecord struct {
	index int
	stamp uint64
}

// claimHistory is a bounded MPMC ring of claim records in claim order.
//
// EvictOldest pops records until one still names a live claim. Each cell
// carries a sequence number: it is writable for position p when seq == p
// and readable when seq == p+1. When the ring is full the oldest record is
// dropped to make room; once a live record has been dropped the pool stops
// trusting the ring and scans stamps instead.
type claimHistory struct {
	_        pad
	tail     atomix.Uint64 // Producer index
	_        pad
	head     atomix.Uint64 // Consumer index
	_        pad
	buffer   []claimHistorySlot
	mask     uint64
	capacity uint64
	dropped  atomix.Uint64
}

type claimHistorySlot struct {
	seq  atomix.Uint64
	data claimRecord
}

// newClaimHistory creates a ring holding at least capacity records.
func newClaimHistory(capacity int) *claimHistory {
	n := uint64(roundToPow2(capacity))
	h := &claimHistory{
		buffer:   make([]claimHistorySlot, n),
		mask:     n - 1,
		capacity: n,
	}
	for i := uint64(0); i < n; i++ {
		h.buffer[i].seq.StoreRelaxed(i)
	}
	return h
}

// push appends rec, evicting the oldest record if the ring is full. An
// evicted record for which stale reports false counts as lost.
func (h *claimHistory) push(rec claimRecord, stale func(claimRecord) bool) {
	for !h.tryPush(rec) {
		if old, ok := h.pop(); ok && !stale(old) {
			h.dropped.AddAcqRel(1)
		}
	}
}

func (h *claimHistory) tryPush(rec claimRecord) bool {
	sw := spin.Wait{}
	for {
		tail := h.tail.LoadAcquire()
		slot := &h.buffer[tail&h.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if h.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = rec
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			return false
		}
		sw.Once()
	}
}

// pop removes and returns the oldest record.
func (h *claimHistory) pop() (claimRecord, bool) {
	sw := spin.Wait{}
	for {
		head := h.head.LoadAcquire()
		slot := &h.buffer[head&h.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if h.head.CompareAndSwapAcqRel(head, head+1) {
				rec := slot.data
				slot.data = claimRecord{}
				slot.seq.StoreRelease(head + h.capacity)
				return rec, true
			}
		} else if diff < 0 {
			return claimRecord{}, false
		}
		sw.Once()
	}
}

// lossy reports whether a live record was ever dropped, meaning the ring
// alone can no longer name the oldest claim.
func (h *claimHistory) lossy() bool {
	return h.dropped.LoadAcquire() != 0
}
