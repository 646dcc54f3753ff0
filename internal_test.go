// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// =============================================================================
// List - Logical Deletion
// =============================================================================

// TestListMarkedNodeIsInvisible tests that a marked node is excluded from
// reads while it is still physically linked, and that the next traversal
// splices it out.
func TestListMarkedNodeIsInvisible(t *testing.T) {
	l := NewList[int]()
	l.Add(1)
	l.Add(2)

	n := l.head.next.Load()
	if n.value != 1 || !n.mark() {
		t.Fatalf("mark first node: failed")
	}
	if n.mark() {
		t.Fatalf("second mark: got true, want false")
	}
	if l.head.next.Load() != n {
		t.Fatalf("marked node was unlinked before any traversal")
	}
	if l.Contains(1) {
		t.Fatalf("Contains(1) on marked node: got true, want false")
	}
	if v, ok := l.First(); !ok || v != 2 {
		t.Fatalf("First: got (%d, %v), want (2, true)", v, ok)
	}

	l.Add(3)
	if l.head.next.Load() == n {
		t.Fatalf("Add did not splice out the marked node")
	}
	if st := n.state.LoadAcquire(); st != nodeUnlinked {
		t.Fatalf("state after splice: got %d, want %d", st, nodeUnlinked)
	}
}

// TestListFreezeIsIdempotent tests that freezing twice appends one marker.
func TestListFreezeIsIdempotent(t *testing.T) {
	l := NewList[int]()
	l.Add(1)
	n := l.head.next.Load()
	n.mark()

	if succ := freeze(n); succ != l.tail {
		t.Fatalf("freeze: successor is not the tail sentinel")
	}
	m := n.next.Load()
	if !m.isMarker() {
		t.Fatalf("freeze: next is not a marker")
	}
	if succ := freeze(n); succ != l.tail || n.next.Load() != m {
		t.Fatalf("second freeze: appended another marker")
	}
}

// =============================================================================
// PriorityQueue - Clear Accounting
// =============================================================================

// TestPriorityQueueClearDropsLinkedUncountedValue replays an Enqueue whose
// value is already linked into its bucket but not yet counted when Clear
// runs. Clear must subtract the value it unlinked, not what Len reported.
func TestPriorityQueueClearDropsLinkedUncountedValue(t *testing.T) {
	pq := NewPriorityQueue[int](2)
	if err := pq.Enqueue(1, 0); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Enqueue(2, 1) up to the point where the bucket has linked the node
	// but neither the bucket nor the priority queue has counted it.
	bucket := pq.buckets[1]
	bucket.Enqueue(2)
	bucket.count.AddAcqRel(-1)

	pq.Clear()

	// The rest of Enqueue(2, 1).
	bucket.count.AddAcqRel(1)
	pq.setBit(1)
	pq.count.AddAcqRel(1)
	pq.version.AddAcqRel(1)

	if v, ok := pq.Dequeue(); ok {
		t.Fatalf("Dequeue after Clear: got (%d, true), want !ok", v)
	}
	if pq.Len() != 0 || bucket.Len() != 0 {
		t.Fatalf("after Clear: Len %d, bucket Len %d, want 0 and 0", pq.Len(), bucket.Len())
	}
}

// TestQueueDropCount tests that drop reports exactly the unlinked values.
func TestQueueDropCount(t *testing.T) {
	q := NewQueue[int]()
	if n := q.drop(); n != 0 {
		t.Fatalf("drop on empty: got %d, want 0", n)
	}
	for i := range 5 {
		q.Enqueue(i)
	}
	q.Dequeue()
	if n := q.drop(); n != 4 {
		t.Fatalf("drop: got %d, want 4", n)
	}
	if q.Len() != 0 || !q.IsEmpty() {
		t.Fatalf("after drop: Len %d, IsEmpty %v", q.Len(), q.IsEmpty())
	}
}

// =============================================================================
// Pool - Claim History
// =============================================================================

func neverStale(claimRecord) bool { return false }

// TestClaimHistoryOrder tests FIFO order and oldest-first dropping.
func TestClaimHistoryOrder(t *testing.T) {
	h := newClaimHistory(4)
	for i := range 4 {
		h.push(claimRecord{index: i, stamp: uint64(i + firstStamp)}, neverStale)
	}
	if h.lossy() {
		t.Fatalf("lossy before overflow: got true, want false")
	}

	// Overflow drops index 0.
	h.push(claimRecord{index: 4, stamp: 6}, neverStale)
	if !h.lossy() {
		t.Fatalf("lossy after overflow: got false, want true")
	}
	for want := 1; want <= 4; want++ {
		rec, ok := h.pop()
		if !ok || rec.index != want {
			t.Fatalf("pop: got (%d, %v), want (%d, true)", rec.index, ok, want)
		}
	}
	if _, ok := h.pop(); ok {
		t.Fatalf("pop on empty: got ok, want !ok")
	}
}

// TestClaimHistoryStaleDropIsNotLoss tests that dropping stale records
// keeps the history exact.
func TestClaimHistoryStaleDropIsNotLoss(t *testing.T) {
	h := newClaimHistory(2)
	stale := func(claimRecord) bool { return true }
	for i := range 10 {
		h.push(claimRecord{index: i, stamp: uint64(i + firstStamp)}, stale)
	}
	if h.lossy() {
		t.Fatalf("lossy after stale drops: got true, want false")
	}
}

// TestClaimHistoryConcurrent pushes from several goroutines and pops from
// several others; every record must be seen at most once.
func TestClaimHistoryConcurrent(t *testing.T) {
	if RaceEnabled {
		t.Skip("skip: ring cells are published through atomix sequence words")
	}
	const producers, perProducer = 4, 2000
	h := newClaimHistory(64)
	seen := make([]atomix.Int32, producers*perProducer)

	var wg sync.WaitGroup
	var popped atomix.Int64
	stop := make(chan struct{})
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for {
				if rec, ok := h.pop(); ok {
					seen[rec.index].Add(1)
					popped.Add(1)
					backoff.Reset()
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
				backoff.Wait()
			}
		}()
	}

	var pwg sync.WaitGroup
	for p := range producers {
		pwg.Add(1)
		go func() {
			defer pwg.Done()
			for i := range perProducer {
				id := p*perProducer + i
				h.push(claimRecord{index: id, stamp: uint64(id + firstStamp)}, neverStale)
			}
		}()
	}
	pwg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := h.pop(); !ok {
			break
		}
		popped.Add(1)
		if time.Now().After(deadline) {
			t.Fatalf("drain: timeout")
		}
	}
	close(stop)
	wg.Wait()

	for i := range seen {
		if n := seen[i].Load(); n > 1 {
			t.Fatalf("record %d popped %d times", i, n)
		}
	}
}

// =============================================================================
// Pool - Free Hints
// =============================================================================

// TestFreeHintsRoundTrip tests FIFO order, the full result and reuse
// across rounds.
func TestFreeHintsRoundTrip(t *testing.T) {
	h := newFreeHints(4)
	if _, ok := h.take(); ok {
		t.Fatalf("take on empty: got ok, want !ok")
	}
	for round := range 3 {
		for i := range 4 {
			if !h.put(i + round) {
				t.Fatalf("round %d put(%d): ring full", round, i+round)
			}
		}
		if h.put(99) {
			t.Fatalf("round %d put on full ring: got true, want false", round)
		}
		for i := range 4 {
			got, ok := h.take()
			if !ok || got != i+round {
				t.Fatalf("round %d take: got (%d, %v), want (%d, true)", round, got, ok, i+round)
			}
		}
	}
}

// TestPoolReusesReleasedSlot tests that Add prefers the hinted slot.
func TestPoolReusesReleasedSlot(t *testing.T) {
	p := NewPool[string](4, Reject)
	for _, v := range []string{"a", "b", "c"} {
		if err := p.Add(v); err != nil {
			t.Fatalf("Add(%s): %v", v, err)
		}
	}
	if _, err := p.RemoveAt(1); err != nil {
		t.Fatalf("RemoveAt(1): %v", err)
	}
	i, ok := p.claimFree("d")
	if !ok || i != 1 {
		t.Fatalf("claimFree: got (%d, %v), want (1, true)", i, ok)
	}
}

type closeCounter struct {
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

// TestPoolStoreBehindCloseSweep replays an Add that passed its closed check
// just before Close and claimed a slot after Close's sweep had finished.
func TestPoolStoreBehindCloseSweep(t *testing.T) {
	p := NewPool[*closeCounter](2, Reject)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c := &closeCounter{}
	if _, ok := p.claimFree(c); !ok {
		t.Fatalf("claimFree: no free slot")
	}
	if err := p.settle(); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("settle: got %v, want ErrPoolClosed", err)
	}
	if c.closes != 1 {
		t.Fatalf("closes: got %d, want 1", c.closes)
	}
	if p.Len() != 0 || p.Contains(c) {
		t.Fatalf("after settle: Len %d, Contains %v", p.Len(), p.Contains(c))
	}
}
