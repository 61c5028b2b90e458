// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/chunkbuffer"
	"github.com/bureau-foundation/chunkstream/lib/chunkframe"
	"github.com/bureau-foundation/chunkstream/lib/clock"
	"github.com/bureau-foundation/chunkstream/lib/codec"
	"github.com/bureau-foundation/chunkstream/lib/service"
	"github.com/bureau-foundation/chunkstream/lib/streamregistry"
	"github.com/bureau-foundation/chunkstream/lib/testutil"
)

// startChunkServer serves fetch-chunk straight from registry, the way
// bureau-chunk-service does, and returns the socket path. corrupt
// flips a payload byte in every frame after encoding.
func startChunkServer(t *testing.T, registry *streamregistry.Registry, corrupt bool) string {
	t.Helper()
	socketPath := testutil.SocketPath(t, "chunk.sock")
	server := service.NewSocketServer(socketPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	server.Handle("fetch-chunk", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			ChunkID string `cbor:"chunk_id"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		id, index, err := streamregistry.ParseChunkID(request.ChunkID)
		if err != nil {
			return nil, err
		}
		section, err := registry.FetchChunk(id, index, 0, 0)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(section)
		if err != nil {
			return nil, err
		}
		frame, err := chunkframe.Encode(data, chunkframe.CompressionZstd)
		if err != nil {
			return nil, err
		}
		if corrupt && len(frame.Payload) > 0 {
			frame.Compression = chunkframe.CompressionNone
			frame.Payload = append([]byte(nil), data...)
			frame.Payload[0] ^= 0xff
		}
		return fetchChunkResult{Frame: frame}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	testutil.RequireListening(t, socketPath, 5*time.Second)
	return socketPath
}

func newTestFetcher(socketPath string, c clock.Clock, wait time.Duration) *fetcher {
	return &fetcher{
		client:        service.NewServiceClient(socketPath),
		clock:         c,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		wait:          wait,
		retryInterval: time.Second,
		debug:         true,
	}
}

func TestFetchStream(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	content := bytes.Repeat([]byte("shuffle-record;"), 100)
	id := registry.RegisterStream("app-1-0", chunkbuffer.SplitMemory(content, 256), nil)
	socketPath := startChunkServer(t, registry, false)

	var output bytes.Buffer
	summary, err := newTestFetcher(socketPath, clock.Real(), 0).fetchStream(context.Background(), id, &output)
	if err != nil {
		t.Fatalf("fetchStream: %v", err)
	}
	if !bytes.Equal(output.Bytes(), content) {
		t.Errorf("fetched %d bytes, content mismatch", output.Len())
	}
	if summary.Chunks != 6 || summary.Bytes != int64(len(content)) {
		t.Errorf("summary = %+v, want 6 chunks / %d bytes", summary, len(content))
	}
}

func TestFetchEmptyStream(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	id := registry.RegisterStream("app-1-0", chunkbuffer.NewMemory(), nil)
	socketPath := startChunkServer(t, registry, false)

	var output bytes.Buffer
	summary, err := newTestFetcher(socketPath, clock.Real(), 0).fetchStream(context.Background(), id, &output)
	if err != nil {
		t.Fatalf("fetchStream: %v", err)
	}
	if summary.Chunks != 0 || output.Len() != 0 {
		t.Errorf("summary = %+v, output %d bytes; want nothing", summary, output.Len())
	}
}

func TestFetchUnknownStreamFailsWithoutWait(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	socketPath := startChunkServer(t, registry, false)

	_, err := newTestFetcher(socketPath, clock.Real(), 0).fetchStream(context.Background(), 5000, io.Discard)
	if !isServiceError(err, streamregistry.ErrStreamNotFound) {
		t.Errorf("error = %v, want stream not registered", err)
	}
}

func TestFetchWaitsForReservedStream(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	id := registry.Reserve("app-1-0", "0-0-0", 0, streamregistry.WholeFile)
	socketPath := startChunkServer(t, registry, false)

	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newTestFetcher(socketPath, fakeClock, time.Minute)

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var output bytes.Buffer
		_, err := f.fetchStream(context.Background(), id, &output)
		done <- outcome{output.Bytes(), err}
	}()

	fakeClock.WaitForWaiters(1)
	registry.RegisterStreamWithID(id, "app-1-0", chunkbuffer.NewMemory([]byte("late"), []byte("data")), nil)
	fakeClock.Advance(time.Second)

	result := testutil.RequireReceive(t, done, 5*time.Second, "waiting for fetchStream")
	if result.err != nil {
		t.Fatalf("fetchStream: %v", result.err)
	}
	if string(result.data) != "latedata" {
		t.Errorf("data = %q, want latedata", result.data)
	}
}

func TestFetchWaitRunsOut(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	socketPath := startChunkServer(t, registry, false)

	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newTestFetcher(socketPath, fakeClock, 2*time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := f.fetchStream(context.Background(), 5000, io.Discard)
		done <- err
	}()

	for range 2 {
		fakeClock.WaitForWaiters(1)
		fakeClock.Advance(time.Second)
	}
	err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for fetchStream")
	if !isServiceError(err, streamregistry.ErrStreamNotFound) {
		t.Errorf("error = %v, want stream not registered after wait", err)
	}
}

func TestFetchRejectsCorruptFrame(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	id := registry.RegisterStream("app-1-0", chunkbuffer.NewMemory([]byte("payload")), nil)
	socketPath := startChunkServer(t, registry, true)

	_, err := newTestFetcher(socketPath, clock.Real(), 0).fetchStream(context.Background(), id, io.Discard)
	if !errors.Is(err, chunkframe.ErrDigestMismatch) {
		t.Errorf("error = %v, want ErrDigestMismatch", err)
	}
}

func TestRunRequiresStream(t *testing.T) {
	if err := run([]string{"--socket", "/nonexistent.sock"}); err == nil {
		t.Error("run without --stream succeeded")
	}
}

func TestFetchToFile(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	content := bytes.Repeat([]byte("spill;"), 200)
	id := registry.RegisterStream("app-1-0", chunkbuffer.SplitMemory(content, 512), nil)
	socketPath := startChunkServer(t, registry, false)

	path := filepath.Join(t.TempDir(), "stream.out")
	summary, err := newTestFetcher(socketPath, clock.Real(), 0).fetchToFile(context.Background(), id, path)
	if err != nil {
		t.Fatalf("fetchToFile: %v", err)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(written, content) || summary.Bytes != int64(len(content)) {
		t.Errorf("wrote %d bytes (summary %+v), want %d", len(written), summary, len(content))
	}
}

func TestFetchToFileReportsCreateFailure(t *testing.T) {
	registry := streamregistry.New(streamregistry.Config{FirstStreamID: 5000})
	socketPath := startChunkServer(t, registry, false)

	path := filepath.Join(t.TempDir(), "missing", "stream.out")
	if _, err := newTestFetcher(socketPath, clock.Real(), 0).fetchToFile(context.Background(), 5000, path); err == nil {
		t.Error("fetchToFile into a missing directory succeeded")
	}
}

func TestCheckOutput(t *testing.T) {
	if err := checkOutput("-", true); err == nil {
		t.Error("stdout on a terminal accepted")
	}
	if err := checkOutput("-", false); err != nil {
		t.Errorf("redirected stdout rejected: %v", err)
	}
	if err := checkOutput("stream.out", true); err != nil {
		t.Errorf("explicit -o rejected on a terminal: %v", err)
	}
}
