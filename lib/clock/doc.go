// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Reservation timestamps, fetch-latency windows, and client retry
// backoff all read time through a Clock. In production Real() wraps
// the time package. In tests Fake() stands still until Advance is
// called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	registry := streamregistry.New(streamregistry.Config{Clock: c})
//	c.Advance(5 * time.Second)
//
// A goroutine blocked in After registers a waiter; WaitForWaiters lets
// a test block until that registration happened before advancing, so
// there is no race between the waiter and the Advance call.
package clock
