// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// StreamID identifies a registered or reserved stream. Ids are unique
// for the lifetime of one Registry, not across process restarts.
type StreamID int64

// String returns the decimal form used in chunk ids and logs.
func (id StreamID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Buffers is the chunk source behind a stream. Implementations are
// owned by the caller: the registry only holds the reference and never
// releases it.
type Buffers interface {
	// NumChunks returns the number of addressable chunks.
	NumChunks() int

	// Chunk returns the bytes of chunk index as a section reader.
	// offset is relative to the chunk start and length <= 0 means
	// the rest of the chunk. Implementations clamp both to the
	// chunk bounds. index is always in [0, NumChunks()).
	Chunk(index, offset, length int) (*io.SectionReader, error)
}

// Metric receives fetch latency observations for a stream. The
// registry stores it and hands it back unchanged; it never calls
// Record itself.
type Metric interface {
	Record(elapsed time.Duration)
}

// WholeFile is the end index of a reservation that reads the whole
// file rather than a chunk range.
const WholeFile = math.MaxInt32

// SortedFileSuffix marks files rewritten by the post-sort pass. Those
// are not read from the original shuffle file.
const SortedFileSuffix = ".sorted"

// IsSortedFile reports whether name is a post-sort rewrite.
func IsSortedFile(name string) bool {
	return strings.HasSuffix(name, SortedFileSuffix)
}

// PendingRegistration describes a reserved stream whose buffers are
// not open yet. Values are immutable once reserved.
type PendingRegistration struct {
	StreamID   StreamID
	DatasetKey string
	FileName   string
	StartIndex int
	EndIndex   int

	// RegisteredAt is when Reserve ran, read from the registry clock.
	RegisteredAt time.Time
}

// IsRangeRead reports whether the reservation covers a chunk range
// instead of the whole file.
func (p PendingRegistration) IsRangeRead() bool {
	return p.EndIndex != WholeFile
}

// IsRegisteredBefore reports whether the reservation was made at or
// before t.
func (p PendingRegistration) IsRegisteredBefore(t time.Time) bool {
	return !p.RegisteredAt.After(t)
}

// IsBackedByOriginalFile reports whether the reservation reads the
// original file rather than a post-sort rewrite of it.
func (p PendingRegistration) IsBackedByOriginalFile() bool {
	return !IsSortedFile(p.FileName)
}
