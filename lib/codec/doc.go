// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the chunk
// service, its clients, and the on-disk chunk index files.
//
// Every encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. The same value always produces the same bytes, which keeps
// index files diffable and lets tests compare encodings directly.
//
// Buffer-oriented use (index files, response payloads):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Stream-oriented use (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire and on-disk types use `cbor` struct tags.
package codec
