// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkbuffer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileBuffers serves chunks of one file. Chunk i spans
// [offsets[i], offsets[i+1]). Safe for concurrent Chunk calls: reads
// go through ReadAt.
type FileBuffers struct {
	path    string
	file    *os.File
	offsets []int64

	closeOnce sync.Once
	closeErr  error
}

// OpenFixed opens path and cuts it into chunkSize-byte chunks; the
// last chunk holds the remainder. An empty file has zero chunks.
func OpenFixed(path string, chunkSize int64) (*FileBuffers, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	file, size, err := openForRead(path)
	if err != nil {
		return nil, err
	}

	offsets := make([]int64, 0, size/chunkSize+2)
	for offset := int64(0); offset < size; offset += chunkSize {
		offsets = append(offsets, offset)
	}
	offsets = append(offsets, size)

	return &FileBuffers{path: path, file: file, offsets: offsets}, nil
}

// OpenIndexed opens path with explicit chunk boundaries. offsets must
// start at 0, be non-decreasing, and end at or before the file size.
// A file with n chunks has n+1 offsets.
func OpenIndexed(path string, offsets []int64) (*FileBuffers, error) {
	if err := validateOffsets(offsets); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	file, size, err := openForRead(path)
	if err != nil {
		return nil, err
	}
	if last := offsets[len(offsets)-1]; last > size {
		file.Close()
		return nil, fmt.Errorf("%s: last chunk offset %d beyond file size %d", path, last, size)
	}

	owned := make([]int64, len(offsets))
	copy(owned, offsets)
	return &FileBuffers{path: path, file: file, offsets: owned}, nil
}

func openForRead(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening chunk file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, 0, fmt.Errorf("%s is not a regular file", path)
	}
	adviseSequential(file)
	return file, info.Size(), nil
}

func validateOffsets(offsets []int64) error {
	if len(offsets) == 0 {
		return errors.New("chunk offsets are empty")
	}
	if offsets[0] != 0 {
		return fmt.Errorf("first chunk offset is %d, want 0", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("chunk offset %d (%d) is below offset %d (%d)", i, offsets[i], i-1, offsets[i-1])
		}
	}
	return nil
}

// Restrict narrows the buffers to chunks [start, end). end is clamped
// to the current chunk count, so a whole-file sentinel end index
// keeps everything from start on. Chunk indexes are renumbered from 0.
// Must not run concurrently with Chunk.
func (b *FileBuffers) Restrict(start, end int) error {
	count := b.NumChunks()
	if end > count {
		end = count
	}
	if start < 0 || start > end {
		return fmt.Errorf("%s: chunk range [%d, %d) invalid for %d chunks", b.path, start, end, count)
	}
	b.offsets = b.offsets[start : end+1]
	return nil
}

// Path returns the file path the buffers were opened from.
func (b *FileBuffers) Path() string { return b.path }

// NumChunks returns the number of chunks.
func (b *FileBuffers) NumChunks() int { return len(b.offsets) - 1 }

// Size returns the total byte length of all chunks.
func (b *FileBuffers) Size() int64 { return b.offsets[len(b.offsets)-1] - b.offsets[0] }

// Chunk returns bytes of chunk index starting offset bytes into the
// chunk. length <= 0 reads to the end of the chunk; offset and length
// are clamped to the chunk.
func (b *FileBuffers) Chunk(index, offset, length int) (*io.SectionReader, error) {
	if index < 0 || index >= b.NumChunks() {
		return nil, fmt.Errorf("%s: chunk %d out of range [0, %d)", b.path, index, b.NumChunks())
	}
	start := b.offsets[index]
	chunkSize := b.offsets[index+1] - start
	sectionOffset, sectionLength := clampRange(chunkSize, int64(offset), int64(length))
	return io.NewSectionReader(b.file, start+sectionOffset, sectionLength), nil
}

// Close releases the file. Safe to call more than once; later calls
// return the first result.
func (b *FileBuffers) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.file.Close()
	})
	return b.closeErr
}

// clampRange fits (offset, length) inside a chunk of chunkSize bytes.
func clampRange(chunkSize, offset, length int64) (int64, int64) {
	if offset < 0 {
		offset = 0
	}
	if offset > chunkSize {
		offset = chunkSize
	}
	remaining := chunkSize - offset
	if length <= 0 || length > remaining {
		length = remaining
	}
	return offset, length
}
