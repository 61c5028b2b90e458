// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-chunk-service serves shuffle files chunk by chunk over a
// Unix socket.
//
// Writers register finished files (register-file) or reserve a stream
// id for a file that is not ready yet (reserve) and open it later
// (open-reserved). Readers fetch chunks by flat chunk id "<stream>_<index>"
// (fetch-chunk). When a dataset is done, the owner expires its key
// (expire-datasets) and every stream and reservation under it is
// dropped and its file closed.
//
// All requests use the lib/service protocol: one CBOR request and one
// CBOR response per connection. Chunk bytes travel inside a
// lib/chunkframe frame, optionally compressed and always carrying a
// BLAKE3 digest of the uncompressed bytes.
//
// Configuration comes from the YAML file named by --config or
// BUREAU_CHUNK_CONFIG (see lib/config).
package main
