// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// Node states. Only List moves a node past nodeLive.
const (
	nodeLive     = 0
	nodeMarked   = 1 // logically deleted, may still be linked
	nodeUnlinked = 2 // physically spliced out
	nodeMarker   = 3 // freeze cell appended after a marked node
)

// node is a singly-linked cell shared by Stack, Queue and List.
//
// value is written once before the node is published by a CAS and never
// written again, so readers holding the node may load it without
// synchronization. A node that has been unlinked stays valid for any
// goroutine still referencing it; the garbage collector reclaims it once
// the last reference is gone, and since nodes are never reused there is no
// ABA on next.
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
	state atomix.Uint64
}

func newNode[T any](value T) *node[T] {
	return &node[T]{value: value}
}

// mark moves n from live to marked. Exactly one caller succeeds; this is
// the irrevocable deletion point.
func (n *node[T]) mark() bool {
	return n.state.CompareAndSwapAcqRel(nodeLive, nodeMarked)
}

// isMarked reports whether n is logically deleted.
func (n *node[T]) isMarked() bool {
	st := n.state.LoadAcquire()
	return st == nodeMarked || st == nodeUnlinked
}

func (n *node[T]) isMarker() bool {
	return n.state.LoadAcquire() == nodeMarker
}
