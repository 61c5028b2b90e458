// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkbuffer

import (
	"bytes"
	"fmt"
	"io"
)

// MemoryBuffers serves chunks held in memory. The slices are not
// copied; callers must not modify them after construction.
type MemoryBuffers struct {
	chunks [][]byte
}

// NewMemory returns buffers over the given chunks.
func NewMemory(chunks ...[]byte) *MemoryBuffers {
	return &MemoryBuffers{chunks: chunks}
}

// SplitMemory cuts data into chunkSize-byte chunks.
func SplitMemory(data []byte, chunkSize int) *MemoryBuffers {
	if chunkSize <= 0 {
		panic(fmt.Sprintf("chunkbuffer: SplitMemory chunk size %d", chunkSize))
	}
	var chunks [][]byte
	for len(data) > 0 {
		size := min(chunkSize, len(data))
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	return &MemoryBuffers{chunks: chunks}
}

// NumChunks returns the number of chunks.
func (m *MemoryBuffers) NumChunks() int { return len(m.chunks) }

// Chunk returns part of chunk index, clamped like FileBuffers.Chunk.
func (m *MemoryBuffers) Chunk(index, offset, length int) (*io.SectionReader, error) {
	if index < 0 || index >= len(m.chunks) {
		return nil, fmt.Errorf("memory chunk %d out of range [0, %d)", index, len(m.chunks))
	}
	chunk := m.chunks[index]
	sectionOffset, sectionLength := clampRange(int64(len(chunk)), int64(offset), int64(length))
	return io.NewSectionReader(bytes.NewReader(chunk), sectionOffset, sectionLength), nil
}
