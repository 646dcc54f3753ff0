// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import "code.hybscloud.com/atomix"

// Iterator is a fail-fast, non-restartable traversal of a container.
//
// The iterator captures the container version when it is created. Each call
// to Next compares that version with the live one; on mismatch Next returns
// false and Err returns [ErrConcurrentModification]. An iteration that
// finishes without error observed no mutation between its start and end.
//
// Example:
//
//	it := q.Iter()
//	for it.Next() {
//	    fmt.Println(it.Value())
//	}
//	if err := it.Err(); err != nil {
//	    // restart the iteration
//	}
type Iterator[T any] struct {
	version *atomix.Uint64
	start   uint64
	step    func() (T, bool)
	cur     T
	err     error
	done    bool
}

func newIterator[T any](version *atomix.Uint64, step func() (T, bool)) *Iterator[T] {
	return &Iterator[T]{
		version: version,
		start:   version.LoadAcquire(),
		step:    step,
	}
}

// Next advances to the next element. It returns false when the traversal is
// exhausted or the container was modified.
func (it *Iterator[T]) Next() bool {
	if it.done {
		return false
	}
	if it.version.LoadAcquire() != it.start {
		return it.fail()
	}
	v, ok := it.step()
	// The end check catches a mutation that happened during the last step.
	if it.version.LoadAcquire() != it.start {
		return it.fail()
	}
	if !ok {
		it.finish()
		return false
	}
	it.cur = v
	return true
}

// Value returns the element at the current position.
func (it *Iterator[T]) Value() T {
	return it.cur
}

// Err returns ErrConcurrentModification if the iteration was torn.
func (it *Iterator[T]) Err() error {
	return it.err
}

func (it *Iterator[T]) fail() bool {
	it.err = ErrConcurrentModification
	it.finish()
	return false
}

func (it *Iterator[T]) finish() {
	var zero T
	it.cur = zero
	it.step = nil
	it.done = true
}

// drain collects the remaining elements of it.
func drain[T any](it *Iterator[T], hint int) ([]T, error) {
	out := make([]T, 0, max(hint, 0))
	for it.Next() {
		out = append(out, it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
