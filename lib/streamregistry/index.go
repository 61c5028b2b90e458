// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package streamregistry

import (
	"sync"

	"github.com/go4org/hashtriemap"
)

// streamSet is the set of stream ids indexed under one dataset key.
// Once cleanup takes the set out of the index it is retired and
// refuses further insertions, so a registration racing the cleanup
// lands in a fresh set instead of an orphaned one.
type streamSet struct {
	mu      sync.Mutex
	ids     map[StreamID]struct{}
	retired bool
}

func newStreamSet() *streamSet {
	return &streamSet{ids: make(map[StreamID]struct{})}
}

// add inserts id unless the set is retired. Reports whether the id
// was recorded.
func (s *streamSet) add(id StreamID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// retire marks the set dead and returns its members.
func (s *streamSet) retire() []StreamID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = true
	ids := make([]StreamID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	return ids
}

func (s *streamSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *streamSet) contains(id StreamID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// datasetIndex maps dataset keys to the stream ids registered or
// reserved under them. It only bounds cleanup cost; lookups on the
// fetch path never touch it. Sets only shrink by cleanup.
type datasetIndex struct {
	sets hashtriemap.HashTrieMap[string, *streamSet]
}

// addStream records id under datasetKey. Two goroutines creating the
// set for an unseen key race through LoadOrStore: exactly one set
// wins and both ids go into it.
func (x *datasetIndex) addStream(datasetKey string, id StreamID) {
	for {
		set, ok := x.sets.Load(datasetKey)
		if !ok {
			set, _ = x.sets.LoadOrStore(datasetKey, newStreamSet())
		}
		if set.add(id) {
			return
		}
		// Retired by a concurrent cleanup between LoadOrStore and
		// add. Cleanup has already unlinked it, so the next
		// LoadOrStore installs a fresh set.
	}
}

// take removes datasetKey from the index and returns its ids. Returns
// nil when the key has no entry.
func (x *datasetIndex) take(datasetKey string) []StreamID {
	set, loaded := x.sets.LoadAndDelete(datasetKey)
	if !loaded {
		return nil
	}
	return set.retire()
}

func (x *datasetIndex) contains(datasetKey string, id StreamID) bool {
	set, ok := x.sets.Load(datasetKey)
	if !ok {
		return false
	}
	return set.contains(id)
}

// streamCount counts indexed ids across all keys.
func (x *datasetIndex) streamCount() int {
	count := 0
	x.sets.Range(func(_ string, set *streamSet) bool {
		count += set.len()
		return true
	})
	return count
}

func (x *datasetIndex) keyCount() int {
	count := 0
	x.sets.Range(func(string, *streamSet) bool {
		count++
		return true
	})
	return count
}
