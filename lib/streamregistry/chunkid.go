// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"fmt"
	"strconv"
	"strings"
)

// chunkIDSeparator joins the stream id and chunk index in the flat
// wire form. This is an interoperability constant: RPC layers that
// reference chunks by flat key depend on it.
const chunkIDSeparator = "_"

// FormatChunkID returns the flat wire identifier for a chunk:
// "<streamID>_<chunkIndex>", unpadded decimal.
func FormatChunkID(streamID StreamID, chunkIndex int) string {
	return strconv.FormatInt(int64(streamID), 10) + chunkIDSeparator + strconv.Itoa(chunkIndex)
}

// ParseChunkID splits a flat chunk identifier produced by
// [FormatChunkID]. Returns an error wrapping [ErrMalformedChunkID]
// unless the input is exactly two underscore-separated base-10
// integers, the second fitting in 32 bits.
func ParseChunkID(chunkID string) (StreamID, int, error) {
	fields := strings.Split(chunkID, chunkIDSeparator)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q has %d fields, want 2", ErrMalformedChunkID, chunkID, len(fields))
	}

	streamID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: stream id: %v", ErrMalformedChunkID, chunkID, err)
	}
	chunkIndex, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: chunk index: %v", ErrMalformedChunkID, chunkID, err)
	}

	return StreamID(streamID), int(chunkIndex), nil
}
