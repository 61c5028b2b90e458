// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// idAllocator hands out stream ids by atomic increment. The starting
// value is randomized so that ids from different processes rarely
// collide in aggregated logs; nothing depends on that.
type idAllocator struct {
	next atomic.Int64
}

func newIDAllocator(first StreamID) *idAllocator {
	allocator := &idAllocator{}
	allocator.next.Store(int64(first))
	return allocator
}

// randomFirstStreamID returns a seed in [0, MaxInt32) * 1000, which
// leaves room for trillions of allocations before overflow.
func randomFirstStreamID() StreamID {
	return StreamID(rand.Int64N(math.MaxInt32) * 1000)
}

// allocate returns a value no other call on this allocator returns.
func (a *idAllocator) allocate() StreamID {
	return StreamID(a.next.Add(1) - 1)
}
