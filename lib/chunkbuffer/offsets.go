// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkbuffer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/chunkstream/lib/codec"
)

// OffsetsFileSuffix names the companion file that carries the chunk
// boundaries of a sorted file: "<data file>.index".
const OffsetsFileSuffix = ".index"

// offsetsFile is the on-disk form of a chunk boundary list.
type offsetsFile struct {
	Version int     `cbor:"version"`
	Offsets []int64 `cbor:"offsets"`
}

const offsetsFileVersion = 1

// OffsetsPath returns the companion offsets file path for dataPath.
func OffsetsPath(dataPath string) string {
	return dataPath + OffsetsFileSuffix
}

// ReadOffsetsFile loads chunk boundaries written by WriteOffsetsFile.
func ReadOffsetsFile(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chunk offsets: %w", err)
	}
	var decoded offsetsFile
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding chunk offsets %s: %w", path, err)
	}
	if decoded.Version != offsetsFileVersion {
		return nil, fmt.Errorf("chunk offsets %s: unsupported version %d", path, decoded.Version)
	}
	if err := validateOffsets(decoded.Offsets); err != nil {
		return nil, fmt.Errorf("chunk offsets %s: %w", path, err)
	}
	return decoded.Offsets, nil
}

// WriteOffsetsFile writes chunk boundaries atomically (temp file and
// rename in the same directory).
func WriteOffsetsFile(path string, offsets []int64) error {
	if err := validateOffsets(offsets); err != nil {
		return err
	}
	data, err := codec.Marshal(offsetsFile{Version: offsetsFileVersion, Offsets: offsets})
	if err != nil {
		return fmt.Errorf("encoding chunk offsets: %w", err)
	}

	temporary, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary offsets file: %w", err)
	}
	temporaryPath := temporary.Name()
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming offsets file into place: %w", err)
	}
	return nil
}
