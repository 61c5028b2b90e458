// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkbuffer provides the chunk sources behind registered
// streams.
//
// [FileBuffers] exposes a file as a sequence of chunks described by
// ascending byte offsets. Original shuffle files are cut at a fixed
// chunk size ([OpenFixed]); files rewritten by the post-sort pass carry
// their chunk boundaries in a companion offsets file ([OpenIndexed],
// [ReadOffsetsFile]). [MemoryBuffers] serves chunks already in memory.
//
// Both satisfy streamregistry.Buffers. The registry never closes
// them: whoever opened a FileBuffers closes it, typically when the
// registry reports the stream removed.
package chunkbuffer
