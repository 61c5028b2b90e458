// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package streamregistry tracks the chunk streams a data-plane server
// exposes to remote readers.
//
// A producer registers a [Buffers] (anything that can hand out a
// numbered sequence of chunks) under a dataset key and receives an
// opaque [StreamID]. Readers then fetch chunks by (stream, index) with
// [Registry.FetchChunk], usually after decoding a flat wire identifier
// with [ParseChunkID]. The registry never reads chunk data itself and
// never closes a Buffers: it holds references, and the transport that
// observes transfer completion or removal (see Config.OnRemove) owns
// the release.
//
// # Two-phase registration
//
// [Registry.Reserve] hands out an id before the backing buffer exists.
// The caller can give that id to a remote reader while an expensive
// file open happens elsewhere, then promote it with
// [Registry.RegisterStreamWithID] or cancel it with
// [Registry.Unregister]. A pending id never satisfies a fetch.
//
// # Expiry
//
// The registry has no timers. An external policy decides that a
// dataset key is finished and calls [Registry.Cleanup], which removes
// every stream and reservation indexed under that key. Cleanup is
// advisory garbage collection: callers must know that no reader still
// needs the key.
//
// # Concurrency
//
// All tables are lock-free hash tries, so FetchChunk costs one lookup
// and never waits on registration or cleanup. A registration is
// visible to every goroutine once the registering call returns.
// In-flight accounting is per-stream atomic counters; the aggregate
// [Registry.TotalInFlight] is an unsynchronized sum and may be stale.
package streamregistry
