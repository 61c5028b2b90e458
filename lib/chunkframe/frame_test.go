// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkframe

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/chunkstream/lib/codec"
)

func compressibleData() []byte {
	return []byte(strings.Repeat("key=partition-0007,value=shuffle-record;", 512))
}

func randomData(t *testing.T, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return data
}

func TestCompressionNames(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("ParseCompression(%q).String() = %q", name, compression.String())
		}
	}
	if compression, err := ParseCompression(""); err != nil || compression != CompressionNone {
		t.Errorf("ParseCompression(\"\") = %v, %v; want none", compression, err)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(\"gzip\") succeeded")
	}
	if got := Compression(9).String(); got != "unknown(9)" {
		t.Errorf("String() = %q", got)
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	data := compressibleData()
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			frame, err := Encode(data, compression)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if frame.Compression != compression {
				t.Errorf("frame compression = %v, want %v", frame.Compression, compression)
			}
			if compression != CompressionNone && len(frame.Payload) >= len(data) {
				t.Errorf("payload %d bytes not smaller than input %d", len(frame.Payload), len(data))
			}

			// Through the wire codec, as the service sends it.
			wire, err := codec.Marshal(frame)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var received Frame
			if err := codec.Unmarshal(wire, &received); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}

			decoded, err := Decode(received)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(decoded, data) {
				t.Error("decoded bytes differ from input")
			}
		})
	}
}

func TestEncodeIncompressibleFallsBack(t *testing.T) {
	data := randomData(t, 4096)
	for _, compression := range []Compression{CompressionLZ4, CompressionZstd} {
		frame, err := Encode(data, compression)
		if err != nil {
			t.Fatalf("Encode(%v): %v", compression, err)
		}
		if frame.Compression != CompressionNone {
			t.Errorf("%v: random data framed as %v, want none", compression, frame.Compression)
		}
		if _, err := Decode(frame); err != nil {
			t.Errorf("%v: Decode: %v", compression, err)
		}
	}
}

func TestEncodeEmptyChunk(t *testing.T) {
	frame, err := Encode(nil, CompressionZstd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("decoded %d bytes, want 0", len(decoded))
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	frame, err := Encode([]byte("exactly the bytes on disk"), CompressionNone)
	if err != nil {
		t.Fatal(err)
	}
	frame.Payload = []byte("exactly the bytes in disk")
	if _, err := Decode(frame); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Decode(corrupted) error = %v, want ErrDigestMismatch", err)
	}
}

func TestDecodeDetectsSizeMismatch(t *testing.T) {
	frame, err := Encode(compressibleData(), CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	frame.Size++
	if _, err := Decode(frame); err == nil {
		t.Error("Decode accepted a wrong size")
	}
}

func TestDigestIsKeyed(t *testing.T) {
	data := []byte("chunk")
	if DigestChunk(data) == DigestChunk([]byte("chunk!")) {
		t.Error("different inputs produced the same digest")
	}
	if DigestChunk(data) != DigestChunk(data) {
		t.Error("digest is not deterministic")
	}
	if len(DigestChunk(data).String()) != 64 {
		t.Errorf("hex digest length = %d", len(DigestChunk(data).String()))
	}
}
