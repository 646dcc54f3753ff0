// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

// Collection is the surface shared by every container in this package.
//
// Len is approximate under concurrency: it is maintained by atomic
// increments that are not transactional with the structural mutation.
// Version is a generation counter bumped on every mutation.
//
// Example:
//
//	var c lfc.Collection[int] = lfc.NewQueue[int]()
//	c.Clear()
//	fmt.Println(c.Len(), c.Version())
type Collection[T any] interface {
	// Len returns the approximate number of elements.
	Len() int

	// Version returns the mutation generation.
	Version() uint64

	// Clear removes every element. Clear is best-effort relative to
	// concurrent inserts: an insert racing with Clear may be kept or lost.
	Clear()

	// ToSlice returns the current elements, or ErrConcurrentModification
	// if the container changed while they were collected.
	ToSlice() ([]T, error)
}

// Iterable is implemented by the node-based containers.
type Iterable[T any] interface {
	// Iter returns a fail-fast iterator over the current elements.
	Iter() *Iterator[T]
}

// FIFO is the producer-consumer interface for an unbounded FIFO queue.
//
// Enqueue never fails. Dequeue reports an empty queue with ok == false.
type FIFO[T any] interface {
	Collection[T]
	Iterable[T]

	// Enqueue appends value at the tail.
	Enqueue(value T)

	// Dequeue removes and returns the head value.
	// Returns (zero-value, false) if the queue is empty.
	Dequeue() (T, bool)

	// Peek returns the head value without removing it.
	Peek() (T, bool)
}

// LIFO is the interface for an unbounded stack.
type LIFO[T any] interface {
	Collection[T]
	Iterable[T]

	// Push places value on top.
	Push(value T)

	// Pop removes and returns the top value.
	// Returns (zero-value, false) if the stack is empty.
	Pop() (T, bool)

	// Peek returns the top value without removing it.
	Peek() (T, bool)
}

var (
	_ LIFO[int]       = (*Stack[int])(nil)
	_ FIFO[int]       = (*Queue[int])(nil)
	_ Collection[int] = (*List[int])(nil)
	_ Iterable[int]   = (*List[int])(nil)
	_ Collection[int] = (*PriorityQueue[int])(nil)
	_ Iterable[int]   = (*PriorityQueue[int])(nil)
	_ Collection[int] = (*Pool[int])(nil)
	_ Iterable[int]   = (*Pool[int])(nil)
)
