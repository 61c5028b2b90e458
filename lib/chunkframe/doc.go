// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkframe packages fetched chunk bytes for the socket.
//
// A [Frame] carries the (optionally compressed) payload, the
// uncompressed size, the compression tag, and a BLAKE3 keyed digest of
// the uncompressed bytes. Readers call [Decode], which decompresses
// and verifies both size and digest, so a chunk corrupted anywhere
// between the file and the reader is rejected rather than delivered.
//
// Compression is chosen per service ([ParseCompression]): "none",
// "lz4" (block mode, cheap), or "zstd" (better ratio). When a chunk
// does not shrink, the frame falls back to "none" for that chunk.
package chunkframe
