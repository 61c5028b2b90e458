// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"sort"

	"github.com/go4org/hashtriemap"
)

// pendingTable holds reservations made by Reserve until they are
// promoted or cancelled. Entries never expire on their own.
type pendingTable struct {
	entries hashtriemap.HashTrieMap[StreamID, PendingRegistration]
}

func (t *pendingTable) store(registration PendingRegistration) {
	t.entries.Store(registration.StreamID, registration)
}

func (t *pendingTable) load(id StreamID) (PendingRegistration, bool) {
	return t.entries.Load(id)
}

// remove deletes id. Absent ids are ignored so cancellation can be
// repeated safely.
func (t *pendingTable) remove(id StreamID) bool {
	_, loaded := t.entries.LoadAndDelete(id)
	return loaded
}

func (t *pendingTable) removeAll(ids []StreamID) int {
	count := 0
	for _, id := range ids {
		if t.remove(id) {
			count++
		}
	}
	return count
}

// snapshot returns the current reservations ordered by stream id.
func (t *pendingTable) snapshot() []PendingRegistration {
	var registrations []PendingRegistration
	t.entries.Range(func(_ StreamID, registration PendingRegistration) bool {
		registrations = append(registrations, registration)
		return true
	})
	sort.Slice(registrations, func(i, j int) bool {
		return registrations[i].StreamID < registrations[j].StreamID
	})
	return registrations
}

func (t *pendingTable) count() int {
	count := 0
	t.entries.Range(func(StreamID, PendingRegistration) bool {
		count++
		return true
	})
	return count
}
