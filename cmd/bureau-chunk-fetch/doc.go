// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-chunk-fetch reads a whole stream from bureau-chunk-service
// and writes it to stdout or a file.
//
// Chunks are fetched in order by flat chunk id until the service
// reports the index out of range. Every frame is verified against its
// BLAKE3 digest before its bytes are written. A stream that is only
// reserved reports "not registered"; with --wait the fetcher retries
// until it is opened or the wait runs out.
//
// Raw stream bytes are never written to a terminal: without -o,
// stdout must be redirected. Logs go to stderr as text on a terminal
// and JSON otherwise.
//
//	bureau-chunk-fetch --socket /run/bureau/chunk.sock --stream 1734000 -o part-0
package main
