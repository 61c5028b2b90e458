// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/chunkframe"
	"github.com/bureau-foundation/chunkstream/lib/codec"
	"github.com/bureau-foundation/chunkstream/lib/config"
	"github.com/bureau-foundation/chunkstream/lib/service"
	"github.com/bureau-foundation/chunkstream/lib/streamregistry"
)

// registerActions registers every socket action on server.
func (cs *ChunkService) registerActions(server *service.SocketServer) {
	server.Handle("status", cs.handleStatus)

	server.Handle("register-file", cs.handleRegisterFile)
	server.Handle("reserve", cs.handleReserve)
	server.Handle("open-reserved", cs.handleOpenReserved)
	server.Handle("cancel-reserved", cs.handleCancelReserved)
	server.Handle("expire-reservations", cs.handleExpireReservations)

	server.Handle("fetch-chunk", cs.handleFetchChunk)

	server.Handle("expire-datasets", cs.handleExpireDatasets)
}

func decodeRequest(raw []byte, request any) error {
	if err := codec.Unmarshal(raw, request); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// parseOptionalSize parses a request's chunk_size field. Empty means
// the configured default (returned as 0).
func parseOptionalSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return config.ParseSize(s)
}

type statusResponse struct {
	UptimeSeconds         float64 `cbor:"uptime_seconds"`
	Streams               int     `cbor:"streams"`
	PendingReservations   int     `cbor:"pending_reservations"`
	IndexedStreams        int     `cbor:"indexed_streams"`
	DatasetKeys           int     `cbor:"dataset_keys"`
	ChunksInFlight        int64   `cbor:"chunks_in_flight"`
	RecentFetches         int64   `cbor:"recent_fetches"`
	AverageFetchLatencyMs float64 `cbor:"average_fetch_latency_ms"`
	LatencyWindowSeconds  float64 `cbor:"latency_window_seconds"`
}

func (cs *ChunkService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds:         cs.clock.Now().Sub(cs.startedAt).Seconds(),
		Streams:               cs.registry.StreamCount(),
		PendingReservations:   cs.registry.PendingCount(),
		IndexedStreams:        cs.registry.IndexedStreamCount(),
		DatasetKeys:           cs.registry.DatasetKeyCount(),
		ChunksInFlight:        cs.registry.TotalInFlight(),
		RecentFetches:         cs.fetchLatency.Count(),
		AverageFetchLatencyMs: float64(cs.fetchLatency.Average()) / float64(time.Millisecond),
		LatencyWindowSeconds:  cs.fetchLatency.Span().Seconds(),
	}, nil
}

type registerFileRequest struct {
	DatasetKey string `cbor:"dataset_key"`
	Path       string `cbor:"path"`
	ChunkSize  string `cbor:"chunk_size,omitempty"`
}

// streamResponse answers actions that produce a live stream.
type streamResponse struct {
	StreamID   int64 `cbor:"stream_id"`
	NumChunks  int   `cbor:"num_chunks"`
	TotalBytes int64 `cbor:"total_bytes"`
}

func (cs *ChunkService) handleRegisterFile(ctx context.Context, raw []byte) (any, error) {
	var request registerFileRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.DatasetKey == "" {
		return nil, errors.New("missing required field: dataset_key")
	}
	if request.Path == "" {
		return nil, errors.New("missing required field: path")
	}
	chunkSize, err := parseOptionalSize(request.ChunkSize)
	if err != nil {
		return nil, err
	}

	buffers, err := cs.openFile(cs.resolve(request.Path), streamregistry.IsSortedFile(request.Path), chunkSize)
	if err != nil {
		return nil, err
	}
	id := cs.registry.RegisterStream(request.DatasetKey, buffers, cs.newStreamMetric())

	cs.logger.Info("stream registered",
		"stream_id", id,
		"dataset_key", request.DatasetKey,
		"path", buffers.Path(),
		"chunks", buffers.NumChunks(),
	)
	return streamResponse{
		StreamID:   int64(id),
		NumChunks:  buffers.NumChunks(),
		TotalBytes: buffers.Size(),
	}, nil
}

type reserveRequest struct {
	DatasetKey string `cbor:"dataset_key"`
	FileName   string `cbor:"file_name"`
	StartIndex int    `cbor:"start_index,omitempty"`
	EndIndex   *int   `cbor:"end_index,omitempty"`
}

type reserveResponse struct {
	StreamID int64 `cbor:"stream_id"`
}

func (cs *ChunkService) handleReserve(ctx context.Context, raw []byte) (any, error) {
	var request reserveRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.DatasetKey == "" {
		return nil, errors.New("missing required field: dataset_key")
	}
	if request.FileName == "" {
		return nil, errors.New("missing required field: file_name")
	}
	endIndex := streamregistry.WholeFile
	if request.EndIndex != nil {
		endIndex = *request.EndIndex
	}
	if request.StartIndex < 0 || endIndex <= request.StartIndex {
		return nil, fmt.Errorf("invalid chunk range [%d, %d)", request.StartIndex, endIndex)
	}

	id := cs.registry.Reserve(request.DatasetKey, request.FileName, request.StartIndex, endIndex)
	cs.logger.Debug("stream reserved",
		"stream_id", id,
		"dataset_key", request.DatasetKey,
		"file_name", request.FileName,
	)
	return reserveResponse{StreamID: int64(id)}, nil
}

type openReservedRequest struct {
	StreamID  int64  `cbor:"stream_id"`
	ChunkSize string `cbor:"chunk_size,omitempty"`
}

func (cs *ChunkService) handleOpenReserved(ctx context.Context, raw []byte) (any, error) {
	var request openReservedRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	chunkSize, err := parseOptionalSize(request.ChunkSize)
	if err != nil {
		return nil, err
	}
	id := streamregistry.StreamID(request.StreamID)

	cs.opening.Lock()
	defer cs.opening.Unlock()

	pending, ok := cs.registry.Pending(id)
	if !ok {
		return nil, fmt.Errorf("stream %d has no pending reservation", id)
	}
	buffers, err := cs.openReservation(pending, chunkSize)
	if err != nil {
		return nil, err
	}
	cs.registry.RegisterStreamWithID(id, pending.DatasetKey, buffers, cs.newStreamMetric())

	cs.logger.Info("reserved stream opened",
		"stream_id", id,
		"dataset_key", pending.DatasetKey,
		"path", buffers.Path(),
		"chunks", buffers.NumChunks(),
		"range_read", pending.IsRangeRead(),
	)
	return streamResponse{
		StreamID:   request.StreamID,
		NumChunks:  buffers.NumChunks(),
		TotalBytes: buffers.Size(),
	}, nil
}

type cancelReservedRequest struct {
	StreamID int64 `cbor:"stream_id"`
}

func (cs *ChunkService) handleCancelReserved(ctx context.Context, raw []byte) (any, error) {
	var request cancelReservedRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	cs.registry.Unregister(streamregistry.StreamID(request.StreamID))
	return nil, nil
}

type expireReservationsRequest struct {
	// Before is a Unix time in milliseconds.
	Before int64 `cbor:"before"`
}

type expireReservationsResponse struct {
	Cancelled int `cbor:"cancelled"`
}

// handleExpireReservations cancels reservations made at or before the
// given instant. Reservations are never expired on a timer; whoever
// owns the reservation lifetime drives this.
func (cs *ChunkService) handleExpireReservations(ctx context.Context, raw []byte) (any, error) {
	var request expireReservationsRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	cutoff := time.UnixMilli(request.Before)

	cancelled := 0
	for _, pending := range cs.registry.PendingRegistrations() {
		if pending.IsRegisteredBefore(cutoff) {
			cs.registry.Unregister(pending.StreamID)
			cancelled++
		}
	}
	if cancelled > 0 {
		cs.logger.Info("stale reservations cancelled",
			"cancelled", cancelled,
			"before", cutoff,
		)
	}
	return expireReservationsResponse{Cancelled: cancelled}, nil
}

type fetchChunkRequest struct {
	ChunkID string `cbor:"chunk_id"`
	Offset  int    `cbor:"offset,omitempty"`
	Length  int    `cbor:"length,omitempty"`
}

// fetchChunkResponse carries one chunk. Its in-flight mark is cleared
// once the socket server has written it.
type fetchChunkResponse struct {
	Frame chunkframe.Frame `cbor:"frame"`

	registry *streamregistry.Registry
	streamID streamregistry.StreamID
}

// ResponseSent implements service.SentNotifier.
func (r *fetchChunkResponse) ResponseSent(err error) {
	r.registry.MarkSent(r.streamID)
}

func (cs *ChunkService) handleFetchChunk(ctx context.Context, raw []byte) (any, error) {
	var request fetchChunkRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	id, chunkIndex, err := streamregistry.ParseChunkID(request.ChunkID)
	if err != nil {
		return nil, err
	}

	started := cs.clock.Now()
	cs.registry.MarkSending(id)
	frame, err := cs.readChunk(id, chunkIndex, request.Offset, request.Length)
	if err != nil {
		cs.registry.MarkSent(id)
		return nil, err
	}

	elapsed := cs.clock.Now().Sub(started)
	cs.fetchLatency.Record(elapsed)
	if metric, ok := cs.registry.FetchMetric(id); ok && metric != nil {
		metric.Record(elapsed)
	}

	return &fetchChunkResponse{
		Frame:    frame,
		registry: cs.registry,
		streamID: id,
	}, nil
}

func (cs *ChunkService) readChunk(id streamregistry.StreamID, chunkIndex, offset, length int) (chunkframe.Frame, error) {
	section, err := cs.registry.FetchChunk(id, chunkIndex, offset, length)
	if err != nil {
		return chunkframe.Frame{}, err
	}
	data := make([]byte, section.Size())
	if _, err := io.ReadFull(section, data); err != nil {
		return chunkframe.Frame{}, fmt.Errorf("reading chunk %s: %w", streamregistry.FormatChunkID(id, chunkIndex), err)
	}
	return chunkframe.Encode(data, cs.compression)
}

type expireDatasetsRequest struct {
	DatasetKeys []string `cbor:"dataset_keys"`
}

type expireDatasetsResponse struct {
	StreamsRemoved int `cbor:"streams_removed"`
}

func (cs *ChunkService) handleExpireDatasets(ctx context.Context, raw []byte) (any, error) {
	var request expireDatasetsRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	removed := cs.registry.Cleanup(request.DatasetKeys)
	return expireDatasetsResponse{StreamsRemoved: removed}, nil
}
