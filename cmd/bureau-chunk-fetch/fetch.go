// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/chunkframe"
	"github.com/bureau-foundation/chunkstream/lib/clock"
	"github.com/bureau-foundation/chunkstream/lib/codec"
	"github.com/bureau-foundation/chunkstream/lib/service"
	"github.com/bureau-foundation/chunkstream/lib/streamregistry"
)

// fetcher pulls chunks of one stream through a service client.
type fetcher struct {
	client *service.ServiceClient
	clock  clock.Clock
	logger *slog.Logger

	// wait bounds how long a not-yet-registered stream is retried;
	// zero fails on the first not-found.
	wait          time.Duration
	retryInterval time.Duration

	// debug logs the CBOR diagnostic form of each response.
	debug bool
}

// fetchSummary reports what fetchStream wrote.
type fetchSummary struct {
	Chunks int
	Bytes  int64
}

// fetchStream writes every chunk of stream id to w in order.
func (f *fetcher) fetchStream(ctx context.Context, id streamregistry.StreamID, w io.Writer) (fetchSummary, error) {
	var summary fetchSummary
	for index := 0; ; index++ {
		data, err := f.fetchChunk(ctx, id, index)
		if isServiceError(err, streamregistry.ErrChunkOutOfRange) {
			return summary, nil
		}
		if err != nil {
			return summary, err
		}
		if _, err := w.Write(data); err != nil {
			return summary, fmt.Errorf("writing chunk %d: %w", index, err)
		}
		summary.Chunks++
		summary.Bytes += int64(len(data))
	}
}

// fetchToFile writes stream id to a new file at path. The file is
// synced and closed before returning, and a failed close is reported
// since it can be the first sign of a short write.
func (f *fetcher) fetchToFile(ctx context.Context, id streamregistry.StreamID, path string) (summary fetchSummary, err error) {
	file, err := os.Create(path)
	if err != nil {
		return summary, err
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	summary, err = f.fetchStream(ctx, id, file)
	if err != nil {
		return summary, err
	}
	if err := file.Sync(); err != nil {
		return summary, fmt.Errorf("syncing %s: %w", path, err)
	}
	return summary, nil
}

// checkOutput refuses to dump raw chunk bytes onto a terminal.
func checkOutput(outputPath string, stdoutIsTerminal bool) error {
	if outputPath == "-" && stdoutIsTerminal {
		return errors.New("refusing to write stream data to a terminal; use -o or redirect stdout")
	}
	return nil
}

// fetchChunk fetches and verifies one chunk, retrying while the stream
// is not registered and the wait has not run out.
func (f *fetcher) fetchChunk(ctx context.Context, id streamregistry.StreamID, index int) ([]byte, error) {
	chunkID := streamregistry.FormatChunkID(id, index)
	deadline := f.clock.Now().Add(f.wait)
	for {
		data, err := f.fetchOnce(ctx, chunkID)
		if !isServiceError(err, streamregistry.ErrStreamNotFound) {
			return data, err
		}
		if !f.clock.Now().Before(deadline) {
			return nil, err
		}
		f.logger.Debug("stream not registered yet, retrying",
			"chunk_id", chunkID,
			"retry_in", f.retryInterval,
		)
		select {
		case <-f.clock.After(f.retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type fetchChunkResult struct {
	Frame chunkframe.Frame `cbor:"frame"`
}

func (f *fetcher) fetchOnce(ctx context.Context, chunkID string) ([]byte, error) {
	var raw codec.RawMessage
	if err := f.client.Call(ctx, "fetch-chunk", map[string]any{"chunk_id": chunkID}, &raw); err != nil {
		return nil, err
	}
	if f.debug {
		if diagnostic, err := codec.Diagnose(raw); err == nil {
			f.logger.Debug("fetch-chunk response", "chunk_id", chunkID, "cbor", diagnostic)
		}
	}

	var result fetchChunkResult
	if err := codec.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding chunk %s: %w", chunkID, err)
	}
	data, err := chunkframe.Decode(result.Frame)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, err)
	}
	return data, nil
}

// isServiceError reports whether err is a server-side failure caused
// by target. Sentinels do not survive the socket, so the match is on
// the message.
func isServiceError(err error, target error) bool {
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		return false
	}
	return strings.Contains(serviceErr.Message, target.Error())
}
