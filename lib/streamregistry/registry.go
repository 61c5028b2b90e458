// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"io"
	"log/slog"

	"github.com/bureau-foundation/chunkstream/lib/clock"
)

// Config configures a Registry. The zero value is usable: real clock,
// discarded logs, random first id, no removal listener.
type Config struct {
	// Clock stamps reservations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives cleanup and promotion events. Defaults to a
	// logger that discards everything.
	Logger *slog.Logger

	// OnRemove is called once for each stream that Cleanup removes,
	// after the stream is gone from the table. The transport uses it
	// to release the stream's Buffers. Called synchronously on the
	// goroutine running Cleanup.
	OnRemove func(StreamID, Buffers)

	// FirstStreamID fixes the first allocated id. Zero selects a
	// random multiple of 1000, so a registry cannot be pinned to start
	// at id 0; use 1 or higher for a deterministic sequence.
	FirstStreamID StreamID
}

// Registry is the stream registry: live streams, pending reservations,
// and the dataset-key index that lets Cleanup find both. All methods
// are safe for concurrent use.
type Registry struct {
	ids     *idAllocator
	streams streamTable
	pending pendingTable
	index   datasetIndex

	clock    clock.Clock
	logger   *slog.Logger
	onRemove func(StreamID, Buffers)
}

// New creates an empty registry.
func New(config Config) *Registry {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	first := config.FirstStreamID
	if first == 0 {
		first = randomFirstStreamID()
	}
	return &Registry{
		ids:      newIDAllocator(first),
		clock:    config.Clock,
		logger:   config.Logger,
		onRemove: config.OnRemove,
	}
}

// RegisterStream registers buffers under a fresh stream id and
// returns it. The stream is fetchable from any goroutine once this
// returns.
func (r *Registry) RegisterStream(datasetKey string, buffers Buffers, metric Metric) StreamID {
	id := r.ids.allocate()
	r.RegisterStreamWithID(id, datasetKey, buffers, metric)
	return id
}

// RegisterStreamWithID registers buffers under a caller-chosen id,
// replacing any live stream with that id. Use it to promote a
// reservation from Reserve (the reservation is removed once the
// stream is published) or to resume a stream after a reconnect.
//
// Panics if buffers is nil.
func (r *Registry) RegisterStreamWithID(id StreamID, datasetKey string, buffers Buffers, metric Metric) {
	if buffers == nil {
		panic("streamregistry: RegisterStreamWithID with nil buffers")
	}
	r.streams.store(id, &streamState{
		buffers:    buffers,
		datasetKey: datasetKey,
		metric:     metric,
	})
	r.index.addStream(datasetKey, id)

	if r.pending.remove(id) {
		r.logger.Debug("promoted reserved stream",
			"stream_id", id,
			"dataset_key", datasetKey,
			"chunks", buffers.NumChunks(),
		)
	}
}

// FetchChunk returns a byte range of one chunk. Fails with
// ErrStreamNotFound when id has no live stream (including ids that
// are only reserved) and ErrChunkOutOfRange when chunkIndex is outside
// [0, NumChunks()). Otherwise returns whatever the stream's Buffers
// returns.
func (r *Registry) FetchChunk(id StreamID, chunkIndex, offset, length int) (*io.SectionReader, error) {
	return r.streams.fetchChunk(id, chunkIndex, offset, length)
}

// FetchMetric returns the metric registered with the stream. The
// boolean is false when the stream is not live; a live stream may
// still have a nil metric.
func (r *Registry) FetchMetric(id StreamID) (Metric, bool) {
	state, ok := r.streams.load(id)
	if !ok {
		return nil, false
	}
	return state.metric, true
}

// DatasetKey returns the dataset key of a live stream.
func (r *Registry) DatasetKey(id StreamID) (string, bool) {
	state, ok := r.streams.load(id)
	if !ok {
		return "", false
	}
	return state.datasetKey, true
}

// MarkSending records that a chunk of the stream was handed to the
// transport. Does nothing if the stream is gone.
func (r *Registry) MarkSending(id StreamID) {
	r.streams.adjustInFlight(id, 1)
}

// MarkSent records that a chunk previously passed to MarkSending
// finished transmitting. Does nothing if the stream is gone.
func (r *Registry) MarkSent(id StreamID) {
	r.streams.adjustInFlight(id, -1)
}

// TotalInFlight returns the approximate number of chunks being
// transmitted across all live streams. The sum is not atomic across
// streams.
func (r *Registry) TotalInFlight() int64 {
	return r.streams.totalInFlight()
}

// Reserve allocates a stream id for a stream whose buffers are not
// open yet, and indexes it under datasetKey. endIndex is WholeFile for
// whole-file reads. The id does not satisfy fetches until promoted
// with RegisterStreamWithID.
func (r *Registry) Reserve(datasetKey, fileName string, startIndex, endIndex int) StreamID {
	id := r.ids.allocate()
	r.pending.store(PendingRegistration{
		StreamID:     id,
		DatasetKey:   datasetKey,
		FileName:     fileName,
		StartIndex:   startIndex,
		EndIndex:     endIndex,
		RegisteredAt: r.clock.Now(),
	})
	r.index.addStream(datasetKey, id)
	return id
}

// Unregister cancels a reservation. Unknown ids are ignored.
func (r *Registry) Unregister(id StreamID) {
	r.pending.remove(id)
}

// Pending returns the reservation for id, if any.
func (r *Registry) Pending(id StreamID) (PendingRegistration, bool) {
	return r.pending.load(id)
}

// PendingRegistrations returns all current reservations ordered by
// stream id.
func (r *Registry) PendingRegistrations() []PendingRegistration {
	return r.pending.snapshot()
}

// Cleanup forgets every dataset key in expiredKeys and removes all
// streams and reservations indexed under them. Returns the number of
// live streams removed. Keys with no entry are ignored, so repeated
// calls are harmless.
//
// This is garbage collection, not a barrier: a registration racing
// Cleanup for the same key may or may not survive. Callers expire a
// key only after every reader of it has drained.
func (r *Registry) Cleanup(expiredKeys []string) int {
	removedStreams := 0
	for _, datasetKey := range expiredKeys {
		ids := r.index.take(datasetKey)
		if len(ids) == 0 {
			continue
		}

		streams := r.streams.remove(ids, func(id StreamID, state *streamState) {
			if r.onRemove != nil {
				r.onRemove(id, state.buffers)
			}
		})
		reservations := r.pending.removeAll(ids)
		removedStreams += streams

		r.logger.Info("expired dataset key cleaned up",
			"dataset_key", datasetKey,
			"indexed", len(ids),
			"streams_removed", streams,
			"reservations_removed", reservations,
		)
	}
	return removedStreams
}

// StreamCount returns the number of live streams.
func (r *Registry) StreamCount() int {
	return r.streams.count()
}

// PendingCount returns the number of outstanding reservations.
func (r *Registry) PendingCount() int {
	return r.pending.count()
}

// IndexedStreamCount returns the number of stream ids recorded in the
// dataset-key index, live or reserved. Ids stay indexed until their key
// is cleaned up, so this can exceed StreamCount+PendingCount.
func (r *Registry) IndexedStreamCount() int {
	return r.index.streamCount()
}

// DatasetKeyCount returns the number of dataset keys in the index.
func (r *Registry) DatasetKeyCount() int {
	return r.index.keyCount()
}
