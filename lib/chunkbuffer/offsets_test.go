// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkbuffer

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bureau-foundation/chunkstream/lib/codec"
)

func TestOffsetsFileRoundtrip(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "0-0-0.sorted")
	offsets := []int64{0, 100, 100, 250}

	if err := WriteOffsetsFile(OffsetsPath(dataPath), offsets); err != nil {
		t.Fatalf("WriteOffsetsFile: %v", err)
	}
	got, err := ReadOffsetsFile(dataPath + ".index")
	if err != nil {
		t.Fatalf("ReadOffsetsFile: %v", err)
	}
	if !slices.Equal(got, offsets) {
		t.Errorf("offsets = %v, want %v", got, offsets)
	}

	entries, err := os.ReadDir(filepath.Dir(dataPath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the offsets file", len(entries))
	}
}

func TestWriteOffsetsFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.index")
	if err := WriteOffsetsFile(path, []int64{5, 10}); err == nil {
		t.Error("WriteOffsetsFile accepted offsets not starting at 0")
	}
}

func TestReadOffsetsFileRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.index")
	data, err := codec.Marshal(offsetsFile{Version: 9, Offsets: []int64{0}})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadOffsetsFile(path); err == nil {
		t.Error("ReadOffsetsFile accepted an unknown version")
	}
}
