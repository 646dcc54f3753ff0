// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// Returned by Pool.Add and Pool.AddAndReturn under the IgnoreNew policy
// when every slot is claimed. The pool is left unchanged.
//
// ErrWouldBlock is a control flow signal, not a failure. This is an alias
// for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

var (
	// ErrConcurrentModification is reported by an Iterator when the
	// container version changed after the iteration started. The
	// iteration is not retried; start a new one.
	ErrConcurrentModification = errors.New("lfc: collection was modified during iteration")

	// ErrPriorityOutOfRange is returned when a priority is outside
	// [0, Levels()).
	ErrPriorityOutOfRange = errors.New("lfc: priority out of range")

	// ErrIndexOutOfRange is returned for a pool slot index outside
	// [0, Cap()).
	ErrIndexOutOfRange = errors.New("lfc: index out of range")

	// ErrSlotNotClaimed is returned when reading or releasing a slot
	// that holds no value.
	ErrSlotNotClaimed = errors.New("lfc: slot is not claimed")

	// ErrSlotClaimed is returned when claiming a slot by index that is
	// already claimed.
	ErrSlotClaimed = errors.New("lfc: slot is already claimed")

	// ErrPoolFull is matched by [PoolFullError] under the Reject policy.
	ErrPoolFull = errors.New("lfc: pool is full")

	// ErrPoolClosed is returned by pool mutations after Close.
	ErrPoolClosed = errors.New("lfc: pool is closed")
)

// PoolFullError reports a value rejected by a full pool. The value is
// carried so the caller can recover it.
type PoolFullError[T any] struct {
	Value T
}

func (e *PoolFullError[T]) Error() string {
	return fmt.Sprintf("%s: rejected %v", ErrPoolFull, e.Value)
}

// Is makes errors.Is(err, ErrPoolFull) hold for any PoolFullError.
func (e *PoolFullError[T]) Is(target error) bool {
	return target == ErrPoolFull
}

// IsPoolFull reports whether err is a capacity rejection from a pool.
func IsPoolFull(err error) bool {
	return errors.Is(err, ErrPoolFull)
}

func indexError(err error, index, n int) error {
	return fmt.Errorf("%w: index %d, len %d", err, index, n)
}

func slotError(err error, index int) error {
	return fmt.Errorf("%w: slot %d", err, index)
}
