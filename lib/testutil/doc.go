// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory under /tmp for Unix
// sockets, whose paths are limited to 108 bytes (sun_path), which
// t.TempDir() under a nested TMPDIR can exceed.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so tests never hang on a lost signal. They are the only
// place tests wait on the wall clock.
//
// [UniqueID] returns distinct identifiers for dataset keys and file
// names shared across parallel tests.
//
// Helpers call t.Fatalf on failure; setup failures are not recoverable.
package testutil
