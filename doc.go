// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfc provides unbounded lock-free containers.
//
// The package offers containers whose correctness rests on compare-and-swap
// retry loops rather than locks:
//
//   - Stack: Treiber LIFO stack
//   - Queue: Michael-Scott FIFO queue
//   - List: append-at-tail list with logical deletion
//   - PriorityQueue: per-level queues indexed by an occupancy bitmap
//   - Pool: claimable slots with an eviction policy
//   - Cache: map updated by swapping immutable snapshots
//
// # Quick Start
//
//	s := lfc.NewStack[int]()
//	s.Push(1)
//	v, ok := s.Pop()
//
//	q := lfc.NewQueue[*Request]()
//	q.Enqueue(req)
//	req, ok := q.Dequeue()
//
//	pq := lfc.NewPriorityQueue[Task](8)
//	pq.Enqueue(task, 2)
//	task, prio, ok := pq.TryDequeue()
//
//	p := lfc.NewPool[*Conn](64, lfc.EvictOldest)
//	evicted, ok, err := p.AddAndReturn(conn)
//
//	c := lfc.NewCache[string, int]()
//	n := c.GetOrAdd("hits", 0)
//
// # Empty Results
//
// Dequeue, Pop, Peek and lookups report a miss with ok == false. A miss is
// not an error:
//
//	v, ok := q.Dequeue()
//	if !ok {
//	    // Queue is empty - try again later
//	}
//
// # Error Handling
//
// Errors are reserved for invalid arguments and misuse, and every error is
// returned before any mutation:
//
//	pq.Enqueue(v, 99)     // ErrPriorityOutOfRange
//	p.Get(-1)             // ErrIndexOutOfRange
//	p.Get(3)              // ErrSlotNotClaimed (slot 3 free)
//	p.ClaimAt(3, v)       // ErrSlotClaimed (slot 3 taken)
//	p.Add(v)              // *PoolFullError under Reject (errors.Is ErrPoolFull)
//	p.Add(v)              // ErrWouldBlock under IgnoreNew
//
// ErrWouldBlock is sourced from [code.hybscloud.com/iox]; use
// [IsWouldBlock], [IsSemantic] and [IsNonFailure] to classify it.
//
// Constructors panic on invalid configuration, such as priority levels
// outside [1, 64] or a pool capacity below 1.
//
// # Length and Version
//
// Every container keeps an approximate element count and a version that is
// bumped on every mutation. The two are individually atomic but not
// transactional with the structural change: a reader may see a count that
// is already updated for a mutation that is not yet visible, or the
// reverse.
//
// # Iteration
//
// The node-based containers and Pool return a fail-fast [Iterator]. It
// captures the version at start and fails with [ErrConcurrentModification]
// as soon as it sees a different one:
//
//	it := q.Iter()
//	for it.Next() {
//	    use(it.Value())
//	}
//	if errors.Is(it.Err(), lfc.ErrConcurrentModification) {
//	    // restart
//	}
//
// Cache iterates a captured immutable snapshot instead, so its enumeration
// is isolated from writers and never fails:
//
//	for k, v := range c.All() {
//	    use(k, v)
//	}
//
// # Progress
//
// No operation blocks, sleeps or starts a goroutine. CAS loops retry with a
// CPU pause from [code.hybscloud.com/spin]. Stack, Queue, List, Pool and
// Cache retry without bound and rely on the scheduler for fairness.
// PriorityQueue.Dequeue alone has a small retry budget: under extreme
// contention it may report empty while a bucket still holds values.
//
// # Memory Reclamation
//
// Unlinked nodes stay readable by any goroutine that still references them
// and are reclaimed by the garbage collector. Nodes are never reused, so
// the ABA problem does not arise on node pointers.
//
// # Race Detection
//
// Node links, snapshots and slot values are published through sync/atomic,
// which the race detector understands. Counters, versions, node states, the
// priority bitmap and the pool rings use [code.hybscloud.com/atomix], whose
// operations appear to the detector as plain memory accesses. Concurrent
// tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, and [code.hybscloud.com/iox] for semantic errors.
package lfc
