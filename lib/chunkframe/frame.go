// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkframe

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash of uncompressed chunk bytes.
type Digest [32]byte

// String returns the hex form used in logs.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// digestKey separates chunk digests from any other BLAKE3 use: the
// ASCII domain name, zero-padded to the 32-byte key size. Changing it
// breaks every reader.
var digestKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'c', 'h', 'u', 'n', 'k', 's', 't', 'r', 'e',
	'a', 'm', '.', 'c', 'h', 'u', 'n', 'k', 0, 0, 0, 0, 0, 0, 0, 0,
}

// DigestChunk computes the chunk digest of data.
func DigestChunk(data []byte) Digest {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		// Only a wrong key length fails, and the key is fixed-size.
		panic("chunkframe: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// Frame is one fetched chunk on the wire.
type Frame struct {
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Digest      Digest      `cbor:"digest"`
	Payload     []byte      `cbor:"payload"`
}

// ErrDigestMismatch means a decoded payload does not hash to the
// frame's digest.
var ErrDigestMismatch = errors.New("chunk digest mismatch")

// Encode builds a frame for data using the requested compression,
// falling back to CompressionNone when data does not shrink.
func Encode(data []byte, compression Compression) (Frame, error) {
	frame := Frame{
		Compression: compression,
		Size:        len(data),
		Digest:      DigestChunk(data),
	}
	if len(data) == 0 {
		frame.Compression = CompressionNone
		frame.Payload = data
		return frame, nil
	}

	payload, err := compress(data, compression)
	if errors.Is(err, errIncompressible) {
		frame.Compression = CompressionNone
		payload = data
	} else if err != nil {
		return Frame{}, err
	}
	frame.Payload = payload
	return frame, nil
}

// Decode returns the uncompressed chunk bytes after checking size and
// digest.
func Decode(frame Frame) ([]byte, error) {
	if frame.Size < 0 {
		return nil, fmt.Errorf("frame size %d is negative", frame.Size)
	}
	data, err := decompress(frame.Payload, frame.Compression, frame.Size)
	if err != nil {
		return nil, err
	}
	if DigestChunk(data) != frame.Digest {
		return nil, fmt.Errorf("%w: frame says %s", ErrDigestMismatch, frame.Digest)
	}
	return data, nil
}
