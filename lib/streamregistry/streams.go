// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/go4org/hashtriemap"
)

// streamState is the live state of one registered stream. Everything
// except inFlight is fixed at registration.
type streamState struct {
	buffers    Buffers
	datasetKey string
	metric     Metric

	// inFlight counts chunks handed to the transport and not yet
	// reported sent. Callers pair increments and decrements; nothing
	// enforces a floor.
	inFlight atomic.Int64
}

// streamTable maps stream ids to live state. This is the structure
// read on every chunk fetch, so it is a lock-free hash trie: a Store
// happens-before any Load that observes it, which gives registration
// its publish-before-use guarantee.
type streamTable struct {
	entries hashtriemap.HashTrieMap[StreamID, *streamState]
}

func (t *streamTable) store(id StreamID, state *streamState) {
	t.entries.Store(id, state)
}

func (t *streamTable) load(id StreamID) (*streamState, bool) {
	return t.entries.Load(id)
}

func (t *streamTable) fetchChunk(id StreamID, chunkIndex, offset, length int) (*io.SectionReader, error) {
	state, ok := t.entries.Load(id)
	if !ok {
		return nil, fmt.Errorf("stream %d for chunk %d: %w (maybe removed)", id, chunkIndex, ErrStreamNotFound)
	}
	if chunkIndex < 0 || chunkIndex >= state.buffers.NumChunks() {
		return nil, fmt.Errorf("stream %d: %w: requested %d, stream has %d chunks",
			id, ErrChunkOutOfRange, chunkIndex, state.buffers.NumChunks())
	}
	return state.buffers.Chunk(chunkIndex, offset, length)
}

// adjustInFlight adds delta to the stream's counter. A missing stream
// is not an error: the accounting hook may run after cleanup removed
// the stream.
func (t *streamTable) adjustInFlight(id StreamID, delta int64) {
	state, ok := t.entries.Load(id)
	if !ok {
		return
	}
	state.inFlight.Add(delta)
}

// totalInFlight sums every live counter without a consistent snapshot.
// Concurrent accounting and removal can make the result transiently
// high or low.
func (t *streamTable) totalInFlight() int64 {
	var sum int64
	t.entries.Range(func(_ StreamID, state *streamState) bool {
		sum += state.inFlight.Load()
		return true
	})
	return sum
}

// remove deletes every id in ids and calls removed for each entry
// that was actually present.
func (t *streamTable) remove(ids []StreamID, removed func(StreamID, *streamState)) int {
	count := 0
	for _, id := range ids {
		state, loaded := t.entries.LoadAndDelete(id)
		if !loaded {
			continue
		}
		count++
		if removed != nil {
			removed(id, state)
		}
	}
	return count
}

func (t *streamTable) count() int {
	count := 0
	t.entries.Range(func(StreamID, *streamState) bool {
		count++
		return true
	})
	return count
}
