// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timewindow keeps a sliding-window average of fetch
// latencies. The chunk service hands a Window to every stream it
// registers and records each chunk fetch into it.
package timewindow

import (
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/clock"
)

// Window averages observations over the last bucketCount*bucketWidth
// of clock time. Observations age out a whole bucket at a time. Safe
// for concurrent use.
type Window struct {
	clock       clock.Clock
	bucketWidth time.Duration

	mu      sync.Mutex
	buckets []bucket
}

type bucket struct {
	// epoch is the bucket-width interval number this bucket holds.
	// A ring slot whose epoch is too old is treated as empty.
	epoch int64
	total time.Duration
	count int64
}

// New returns a window of bucketCount buckets, each bucketWidth wide.
func New(c clock.Clock, bucketCount int, bucketWidth time.Duration) (*Window, error) {
	if bucketCount <= 0 {
		return nil, fmt.Errorf("time window needs at least one bucket, got %d", bucketCount)
	}
	if bucketWidth <= 0 {
		return nil, fmt.Errorf("time window bucket width must be positive, got %v", bucketWidth)
	}
	return &Window{
		clock:       c,
		bucketWidth: bucketWidth,
		buckets:     make([]bucket, bucketCount),
	}, nil
}

// Span returns the total time the window covers.
func (w *Window) Span() time.Duration {
	return w.bucketWidth * time.Duration(len(w.buckets))
}

func (w *Window) currentEpoch() int64 {
	return w.clock.Now().UnixNano() / int64(w.bucketWidth)
}

// Record adds one observation at the current clock time.
func (w *Window) Record(elapsed time.Duration) {
	epoch := w.currentEpoch()

	w.mu.Lock()
	defer w.mu.Unlock()

	slot := &w.buckets[int(epoch%int64(len(w.buckets)))]
	if slot.epoch != epoch {
		*slot = bucket{epoch: epoch}
	}
	slot.total += elapsed
	slot.count++
}

// Average returns the mean observation inside the window, or zero
// when the window is empty.
func (w *Window) Average() time.Duration {
	total, count := w.sum()
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// Count returns the number of observations inside the window.
func (w *Window) Count() int64 {
	_, count := w.sum()
	return count
}

func (w *Window) sum() (time.Duration, int64) {
	oldest := w.currentEpoch() - int64(len(w.buckets)) + 1

	w.mu.Lock()
	defer w.mu.Unlock()

	var total time.Duration
	var count int64
	for _, slot := range w.buckets {
		if slot.count == 0 || slot.epoch < oldest {
			continue
		}
		total += slot.total
		count += slot.count
	}
	return total, count
}
