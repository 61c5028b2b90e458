// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the socket plumbing shared by the chunk
// service and its clients.
//
//   - [SocketServer]: CBOR request-response server on a Unix socket.
//     Each connection carries one request and one response. Requests
//     are CBOR maps with an "action" field that selects a registered
//     [ActionFunc]; responses are a [Response] envelope.
//   - [ServiceClient]: the matching client, one connection per Call.
//   - [NewLogger]: the JSON slog logger every binary writes to stderr.
//
// Binaries compose these in their own main() rather than through a
// framework.
//
// # Completion notification
//
// A handler result that implements [SentNotifier] is told when its
// response has been written (or failed to write). The chunk fetch
// path uses this to close its in-flight accounting only after the
// bytes actually left the process.
//
// # Authentication
//
// None at the socket level. Access control is the filesystem
// permission on the socket path.
package service
