// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/chunkbuffer"
	"github.com/bureau-foundation/chunkstream/lib/chunkframe"
	"github.com/bureau-foundation/chunkstream/lib/clock"
	"github.com/bureau-foundation/chunkstream/lib/config"
	"github.com/bureau-foundation/chunkstream/lib/streamregistry"
	"github.com/bureau-foundation/chunkstream/lib/timewindow"
)

// ChunkService owns the stream registry and answers socket actions.
type ChunkService struct {
	registry *streamregistry.Registry
	clock    clock.Clock
	logger   *slog.Logger

	// dataDir resolves relative file names in requests.
	dataDir     string
	chunkSize   int64
	compression chunkframe.Compression

	latencyBuckets int
	latencyWidth   time.Duration

	// fetchLatency averages every fetch across all streams; each
	// stream also carries its own window as its registry metric.
	fetchLatency *timewindow.Window

	// opening serializes open-reserved so two requests for the same
	// reservation cannot both open the file.
	opening sync.Mutex

	startedAt time.Time
}

// newChunkService builds the service from a validated config.
func newChunkService(cfg *config.Config, c clock.Clock, logger *slog.Logger) (*ChunkService, error) {
	chunkSize, err := cfg.ChunkSizeBytes()
	if err != nil {
		return nil, err
	}
	compression, err := chunkframe.ParseCompression(cfg.Fetch.Compression)
	if err != nil {
		return nil, err
	}
	width, err := cfg.LatencyWidth()
	if err != nil {
		return nil, err
	}
	fetchLatency, err := timewindow.New(c, cfg.Fetch.LatencyBuckets, width)
	if err != nil {
		return nil, err
	}

	cs := &ChunkService{
		clock:          c,
		logger:         logger,
		dataDir:        cfg.Service.DataDir,
		chunkSize:      chunkSize,
		compression:    compression,
		latencyBuckets: cfg.Fetch.LatencyBuckets,
		latencyWidth:   width,
		fetchLatency:   fetchLatency,
		startedAt:      c.Now(),
	}
	cs.registry = streamregistry.New(streamregistry.Config{
		Clock:    c,
		Logger:   logger,
		OnRemove: cs.releaseBuffers,
	})
	return cs, nil
}

// releaseBuffers closes the file behind a stream removed by cleanup.
func (cs *ChunkService) releaseBuffers(id streamregistry.StreamID, buffers streamregistry.Buffers) {
	closer, ok := buffers.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		cs.logger.Warn("closing expired stream buffers failed",
			"stream_id", id,
			"error", err,
		)
	}
}

// newStreamMetric returns a fresh latency window for one stream.
func (cs *ChunkService) newStreamMetric() streamregistry.Metric {
	window, err := timewindow.New(cs.clock, cs.latencyBuckets, cs.latencyWidth)
	if err != nil {
		// Sizes were validated when the service was built.
		panic(fmt.Sprintf("creating stream latency window: %v", err))
	}
	return window
}

// openFile opens a shuffle file as chunked buffers. Original files are
// split into fixed chunks of chunkSize bytes; sorted files take their
// chunk boundaries from the companion offsets file.
func (cs *ChunkService) openFile(path string, sorted bool, chunkSize int64) (*chunkbuffer.FileBuffers, error) {
	if sorted {
		offsets, err := chunkbuffer.ReadOffsetsFile(chunkbuffer.OffsetsPath(path))
		if err != nil {
			return nil, err
		}
		return chunkbuffer.OpenIndexed(path, offsets)
	}
	if chunkSize <= 0 {
		chunkSize = cs.chunkSize
	}
	return chunkbuffer.OpenFixed(path, chunkSize)
}

// openReservation opens the file a reservation names, narrowed to its
// chunk range for range reads.
func (cs *ChunkService) openReservation(pending streamregistry.PendingRegistration, chunkSize int64) (*chunkbuffer.FileBuffers, error) {
	buffers, err := cs.openFile(cs.resolve(pending.FileName), !pending.IsBackedByOriginalFile(), chunkSize)
	if err != nil {
		return nil, err
	}
	if pending.IsRangeRead() {
		if err := buffers.Restrict(pending.StartIndex, pending.EndIndex); err != nil {
			buffers.Close()
			return nil, err
		}
	}
	return buffers, nil
}

func (cs *ChunkService) resolve(name string) string {
	return config.ResolvePath(cs.dataDir, name)
}
