// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"runtime"
	"time"
)

// RequireListening waits until a Unix socket at path accepts a
// connection, or fails the test after timeout. A file existing at path
// is not enough: a stale socket file or a server that has not called
// listen yet both refuse connections.
func RequireListening(t TB, path string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout) //nolint:realclock test hang prevention
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("socket %s not accepting connections after %v: %v", path, timeout, err)
			return
		}
		runtime.Gosched()
	}
}
