// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"errors"
	"io"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// EvictionPolicy selects what a full Pool does with a new value.
type EvictionPolicy uint8

const (
	// EvictOldest overwrites the slot claimed longest ago.
	EvictOldest EvictionPolicy = iota
	// EvictNewest overwrites the slot claimed most recently.
	EvictNewest
	// Grow appends a new slot, increasing Cap.
	Grow
	// IgnoreNew leaves the pool unchanged and returns ErrWouldBlock.
	IgnoreNew
	// Reject leaves the pool unchanged and returns a *PoolFullError.
	Reject
)

func (p EvictionPolicy) String() string {
	switch p {
	case EvictOldest:
		return "evict-oldest"
	case EvictNewest:
		return "evict-newest"
	case Grow:
		return "grow"
	case IgnoreNew:
		return "ignore-new"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// Slot words. Values >= firstStamp are claim stamps.
const (
	slotFree   = 0
	slotBusy   = 1 // owned by exactly one goroutine mid-transition
	firstStamp = 2
)

// historyFactor sizes the claim history relative to the initial capacity.
const historyFactor = 2

// hintProbes bounds how many free-slot hints Add tries before scanning.
const hintProbes = 4

type poolSlot[T any] struct {
	word  atomix.Uint64
	_     padShort
	value atomic.Pointer[T]
	_     padPtr
}

// snapshot returns the value and stamp of a claimed slot. busy reports that
// another goroutine is mid-transition on the slot.
func (s *poolSlot[T]) snapshot() (value T, stamp uint64, claimed, busy bool) {
	for {
		w := s.word.LoadAcquire()
		switch w {
		case slotFree:
			return value, 0, false, false
		case slotBusy:
			return value, 0, false, true
		}
		p := s.value.Load()
		if p != nil && s.word.LoadAcquire() == w {
			return *p, w, true, false
		}
	}
}

// Pool is a fixed array of independently claimable slots with a pluggable
// policy for when every slot is claimed.
//
// Each slot has one atomic word: free, busy, or a claim stamp. Claiming a
// free slot is a single CAS from free to busy, so exactly one of several
// racing claimers wins; the losers rescan. The winner stores the value and
// publishes a fresh stamp from the pool clock. Releasing or evicting a slot
// first takes it from its observed stamp to busy, so only one goroutine can
// ever release a given claim.
//
// A bounded claim history (see claimHistory) resolves the oldest claim
// without scanning; released slot indices are offered to a free-hint ring
// (see freeHints) that Add probes before scanning.
//
// Notifications registered with OnClaimed, OnReleased and OnClaimFailed are
// delivered synchronously on the calling goroutine. On eviction the
// released event for the old value precedes the claimed event for the new.
//
// Close releases every claimed slot and calls Close exactly once on each
// released value that implements io.Closer.
type Pool[T comparable] struct {
	_       pad
	slots   atomic.Pointer[[]*poolSlot[T]]
	_       padPtr
	clock   atomix.Uint64
	_       padShort
	count   atomix.Int64
	_       padShort
	version atomix.Uint64
	_       padShort
	closed  atomix.Uint64
	_       padShort
	newest  atomic.Pointer[claimRecord]
	_       padPtr
	policy  EvictionPolicy
	history *claimHistory
	hints   *freeHints

	onClaimed     listeners[T]
	onReleased    listeners[T]
	onClaimFailed listeners[T]
}

// NewPool creates a pool with capacity slots and the given policy.
// Panics if capacity < 1.
func NewPool[T comparable](capacity int, policy EvictionPolicy) *Pool[T] {
	return NewPoolBuilder[T](capacity).Policy(policy).Build()
}

func newPool[T comparable](capacity int, policy EvictionPolicy) *Pool[T] {
	p := &Pool[T]{
		policy:  policy,
		history: newClaimHistory(historyFactor * capacity),
		hints:   newFreeHints(capacity),
	}
	table := make([]*poolSlot[T], capacity)
	for i := range table {
		table[i] = &poolSlot[T]{}
	}
	p.slots.Store(&table)
	p.clock.StoreRelaxed(firstStamp - 1)
	return p
}

// Add stores value in a free slot, applying the policy when none is free.
//
// Returns nil on success (including eviction), ErrWouldBlock under
// IgnoreNew, a *PoolFullError under Reject, or ErrPoolClosed.
func (p *Pool[T]) Add(value T) error {
	_, _, err := p.AddAndReturn(value)
	return err
}

// AddAndReturn is Add that also returns the value evicted to make room.
// evicted is true only when an EvictOldest or EvictNewest pool overwrote a
// slot.
func (p *Pool[T]) AddAndReturn(value T) (old T, evicted bool, err error) {
	sw := spin.Wait{}
	for {
		if p.closed.LoadAcquire() != 0 {
			return old, false, ErrPoolClosed
		}
		if _, ok := p.claimFree(value); ok {
			return old, false, p.settle()
		}
		switch p.policy {
		case IgnoreNew:
			p.onClaimFailed.emit(-1, value)
			return old, false, ErrWouldBlock
		case Reject:
			p.onClaimFailed.emit(-1, value)
			return old, false, &PoolFullError[T]{Value: value}
		case Grow:
			if p.grow(value) {
				return old, false, p.settle()
			}
		case EvictOldest, EvictNewest:
			if v, ok := p.evict(value); ok {
				return v, true, p.settle()
			}
		}
		// Lost a race with another claimer or releaser; look again.
		sw.Once()
	}
}

// ClaimAt stores value in the slot at index, which must be free.
func (p *Pool[T]) ClaimAt(index int, value T) error {
	if p.closed.LoadAcquire() != 0 {
		return ErrPoolClosed
	}
	table := p.table()
	if index < 0 || index >= len(table) {
		return indexError(ErrIndexOutOfRange, index, len(table))
	}
	if !p.tryClaim(table[index], index, value) {
		p.onClaimFailed.emit(index, value)
		return slotError(ErrSlotClaimed, index)
	}
	return p.settle()
}

// Get returns the value in the slot at index.
func (p *Pool[T]) Get(index int) (T, error) {
	table := p.table()
	if index < 0 || index >= len(table) {
		var zero T
		return zero, indexError(ErrIndexOutOfRange, index, len(table))
	}
	sw := spin.Wait{}
	for {
		v, _, claimed, busy := table[index].snapshot()
		if claimed {
			return v, nil
		}
		if !busy {
			return v, slotError(ErrSlotNotClaimed, index)
		}
		sw.Once()
	}
}

// Remove releases the first slot holding value. It reports whether a slot
// was released by this call.
func (p *Pool[T]) Remove(value T) bool {
	for i, s := range p.table() {
		v, stamp, claimed, _ := s.snapshot()
		if !claimed || v != value {
			continue
		}
		if _, ok := p.release(i, s, stamp); ok {
			return true
		}
	}
	return false
}

// RemoveAt releases the slot at index and returns the value it held.
func (p *Pool[T]) RemoveAt(index int) (T, error) {
	table := p.table()
	if index < 0 || index >= len(table) {
		var zero T
		return zero, indexError(ErrIndexOutOfRange, index, len(table))
	}
	s := table[index]
	sw := spin.Wait{}
	for {
		switch w := s.word.LoadAcquire(); w {
		case slotFree:
			var zero T
			return zero, slotError(ErrSlotNotClaimed, index)
		case slotBusy:
		default:
			if v, ok := p.release(index, s, w); ok {
				return v, nil
			}
		}
		sw.Once()
	}
}

// Contains reports whether a claimed slot holds value.
func (p *Pool[T]) Contains(value T) bool {
	for _, s := range p.table() {
		if v, _, claimed, _ := s.snapshot(); claimed && v == value {
			return true
		}
	}
	return false
}

// Clear releases every claimed slot, emitting a released event for each.
func (p *Pool[T]) Clear() {
	p.releaseAll(nil)
}

// Close releases every claimed slot and closes each released value that
// implements io.Closer. Later mutations return ErrPoolClosed. Close is
// idempotent. An Add racing with Close may still store its value; that Add
// then releases and closes it itself and returns ErrPoolClosed.
func (p *Pool[T]) Close() error {
	if !p.closed.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	return p.sweep()
}

// sweep releases every claimed slot and closes the released values.
func (p *Pool[T]) sweep() error {
	var errs []error
	p.releaseAll(func(v T) {
		if c, ok := any(v).(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// settle runs after a store succeeded. A store that passed the closed check
// just before Close may land behind Close's sweep, so it sweeps again and
// reports ErrPoolClosed.
func (p *Pool[T]) settle() error {
	if p.closed.LoadAcquire() == 0 {
		return nil
	}
	if err := p.sweep(); err != nil {
		return errors.Join(ErrPoolClosed, err)
	}
	return ErrPoolClosed
}

// OnClaimed registers fn to run after a slot is claimed.
func (p *Pool[T]) OnClaimed(fn SlotListener[T]) { p.onClaimed.add(fn) }

// OnReleased registers fn to run after a slot is released or evicted.
func (p *Pool[T]) OnReleased(fn SlotListener[T]) { p.onReleased.add(fn) }

// OnClaimFailed registers fn to run when a value could not be stored.
func (p *Pool[T]) OnClaimFailed(fn SlotListener[T]) { p.onClaimFailed.add(fn) }

// Len returns the approximate number of claimed slots.
func (p *Pool[T]) Len() int {
	return int(max(p.count.LoadAcquire(), 0))
}

// Cap returns the current number of slots.
func (p *Pool[T]) Cap() int {
	return len(p.table())
}

// Policy returns the eviction policy.
func (p *Pool[T]) Policy() EvictionPolicy {
	return p.policy
}

// Version returns the mutation generation.
func (p *Pool[T]) Version() uint64 {
	return p.version.LoadAcquire()
}

// Iter returns a fail-fast iterator over claimed values in slot order.
func (p *Pool[T]) Iter() *Iterator[T] {
	var table []*poolSlot[T]
	i := -1
	return newIterator(&p.version, func() (T, bool) {
		if table == nil {
			table = p.table()
		}
		for i++; i < len(table); i++ {
			if v, _, claimed, _ := table[i].snapshot(); claimed {
				return v, true
			}
		}
		var zero T
		return zero, false
	})
}

// ToSlice returns the claimed values in slot order.
func (p *Pool[T]) ToSlice() ([]T, error) {
	return drain(p.Iter(), p.Len())
}

func (p *Pool[T]) table() []*poolSlot[T] {
	return *p.slots.Load()
}

// claimFree claims any free slot for value.
func (p *Pool[T]) claimFree(value T) (int, bool) {
	table := p.table()
	for range hintProbes {
		i, ok := p.hints.take()
		if !ok {
			break
		}
		if i < len(table) && p.tryClaim(table[i], i, value) {
			return i, true
		}
	}
	for i, s := range table {
		if s.word.LoadAcquire() == slotFree && p.tryClaim(s, i, value) {
			return i, true
		}
	}
	return -1, false
}

// tryClaim is the single test-and-set that moves s from free to claimed.
func (p *Pool[T]) tryClaim(s *poolSlot[T], index int, value T) bool {
	if !s.word.CompareAndSwapAcqRel(slotFree, slotBusy) {
		return false
	}
	p.publish(s, index, value)
	p.count.AddAcqRel(1)
	p.version.AddAcqRel(1)
	p.onClaimed.emit(index, value)
	return true
}

// publish stores value in the busy slot s, stamps it and records the claim.
func (p *Pool[T]) publish(s *poolSlot[T], index int, value T) {
	s.value.Store(&value)
	stamp := p.clock.AddAcqRel(1)
	s.word.StoreRelease(stamp)
	rec := claimRecord{index: index, stamp: stamp}
	p.history.push(rec, p.stale)
	p.newest.Store(&rec)
}

// stale reports whether rec no longer names a current claim.
func (p *Pool[T]) stale(rec claimRecord) bool {
	table := p.table()
	return rec.index >= len(table) || table[rec.index].word.LoadAcquire() != rec.stamp
}

// release frees s if it still carries stamp, returning the value it held.
func (p *Pool[T]) release(index int, s *poolSlot[T], stamp uint64) (T, bool) {
	if !s.word.CompareAndSwapAcqRel(stamp, slotBusy) {
		var zero T
		return zero, false
	}
	old := *s.value.Swap(nil)
	s.word.StoreRelease(slotFree)
	p.count.AddAcqRel(-1)
	p.version.AddAcqRel(1)
	p.hints.put(index)
	p.onReleased.emit(index, old)
	return old, true
}

func (p *Pool[T]) releaseAll(each func(T)) {
	sw := spin.Wait{}
	for i, s := range p.table() {
		for {
			w := s.word.LoadAcquire()
			if w == slotFree {
				break
			}
			if w != slotBusy {
				if v, ok := p.release(i, s, w); ok {
					if each != nil {
						each(v)
					}
					break
				}
			}
			sw.Once()
		}
	}
}

// grow appends a slot already claimed for value. It returns false if the
// slot table changed underneath it.
func (p *Pool[T]) grow(value T) bool {
	old := p.slots.Load()
	index := len(*old)
	s := &poolSlot[T]{}
	s.word.StoreRelaxed(slotBusy)
	next := make([]*poolSlot[T], index+1)
	copy(next, *old)
	next[index] = s
	if !p.slots.CompareAndSwap(old, &next) {
		return false
	}
	// s is published busy, so nobody else touches it until stamped.
	p.publish(s, index, value)
	p.count.AddAcqRel(1)
	p.version.AddAcqRel(1)
	p.onClaimed.emit(index, value)
	return true
}

// evict overwrites the victim chosen by the policy with value.
func (p *Pool[T]) evict(value T) (T, bool) {
	switch p.policy {
	case EvictOldest:
		// A ring that dropped a live record no longer knows the oldest claim.
		for !p.history.lossy() {
			rec, ok := p.history.pop()
			if !ok {
				break
			}
			if old, ok := p.replace(rec, value); ok {
				return old, true
			}
		}
	case EvictNewest:
		if rec := p.newest.Load(); rec != nil {
			if old, ok := p.replace(*rec, value); ok {
				return old, true
			}
		}
	}
	// Records were lost or stale: fall back to scanning stamps.
	if rec, ok := p.scanVictim(p.policy == EvictNewest); ok {
		return p.replace(rec, value)
	}
	var zero T
	return zero, false
}

// replace takes the slot named by rec from its stamp to busy and swaps in
// value, returning the evicted value.
func (p *Pool[T]) replace(rec claimRecord, value T) (T, bool) {
	table := p.table()
	var zero T
	if rec.index >= len(table) {
		return zero, false
	}
	s := table[rec.index]
	if !s.word.CompareAndSwapAcqRel(rec.stamp, slotBusy) {
		return zero, false
	}
	old := *s.value.Load()
	p.publish(s, rec.index, value)
	p.version.AddAcqRel(1)
	p.onReleased.emit(rec.index, old)
	p.onClaimed.emit(rec.index, value)
	return old, true
}

// scanVictim finds the claimed slot with the smallest (or largest) stamp.
func (p *Pool[T]) scanVictim(newest bool) (claimRecord, bool) {
	var best claimRecord
	found := false
	for i, s := range p.table() {
		w := s.word.LoadAcquire()
		if w < firstStamp {
			continue
		}
		if !found || (newest && w > best.stamp) || (!newest && w < best.stamp) {
			best = claimRecord{index: i, stamp: w}
			found = true
		}
	}
	return best, found
}
