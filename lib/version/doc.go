// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the chunk binaries.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected with
// -ldflags -X at build time. When they are not injected, [Current]
// falls back to the VCS stamp the Go toolchain records in the binary
// (runtime/debug.ReadBuildInfo).
//
//	go build -ldflags "-X github.com/bureau-foundation/chunkstream/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
