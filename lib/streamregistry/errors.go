// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import "errors"

// Fetch and decode failures. Each is fatal to the single call that
// returned it and says nothing about other streams. Callers test with
// errors.Is; returned errors wrap these with the stream id and chunk
// index.
var (
	// ErrStreamNotFound means the stream id has no live state: it was
	// never registered, is only reserved, or was removed by Cleanup.
	ErrStreamNotFound = errors.New("stream not registered")

	// ErrChunkOutOfRange means the chunk index is negative or at or
	// beyond the stream's chunk count.
	ErrChunkOutOfRange = errors.New("chunk index out of range")

	// ErrMalformedChunkID means a flat chunk identifier is not exactly
	// two underscore-separated decimal integers.
	ErrMalformedChunkID = errors.New("malformed stream chunk id")
)
