// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bureau-foundation/chunkstream/lib/codec"
	"github.com/bureau-foundation/chunkstream/lib/testutil"
)

func TestServiceClientCall(t *testing.T) {
	socketPath := testutil.SocketPath(t, "service.sock")
	server := NewSocketServer(socketPath, testLogger())

	type addRequest struct {
		A int `cbor:"a"`
		B int `cbor:"b"`
	}
	server.Handle("add", func(ctx context.Context, raw []byte) (any, error) {
		var request addRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]int{"sum": request.A + request.B}, nil
	})
	server.Handle("reject", func(ctx context.Context, raw []byte) (any, error) {
		return nil, fmt.Errorf("chunk index 9 out of range")
	})
	server.Handle("blob", func(ctx context.Context, raw []byte) (any, error) {
		return map[string][]byte{"data": bytes.Repeat([]byte{0xab}, 4<<20)}, nil
	})
	startServer(t, server, socketPath)

	client := NewServiceClient(socketPath)
	ctx := context.Background()

	var sum struct {
		Sum int `cbor:"sum"`
	}
	if err := client.Call(ctx, "add", map[string]any{"a": 2, "b": 40}, &sum); err != nil {
		t.Fatalf("Call(add): %v", err)
	}
	if sum.Sum != 42 {
		t.Errorf("sum = %d, want 42", sum.Sum)
	}

	err := client.Call(ctx, "reject", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("Call(reject) error = %v, want *ServiceError", err)
	}
	if serviceErr.Action != "reject" || !strings.Contains(serviceErr.Message, "out of range") {
		t.Errorf("ServiceError = %+v", serviceErr)
	}

	var blob struct {
		Data []byte `cbor:"data"`
	}
	if err := client.Call(ctx, "blob", nil, &blob); err != nil {
		t.Fatalf("Call(blob): %v", err)
	}
	if len(blob.Data) != 4<<20 {
		t.Errorf("blob length = %d, want %d", len(blob.Data), 4<<20)
	}
}

func TestServiceClientConnectFailure(t *testing.T) {
	client := NewServiceClient(testutil.SocketPath(t, "absent.sock"))
	err := client.Call(context.Background(), "ping", nil, nil)
	if err == nil {
		t.Fatal("Call against missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Errorf("connection failure reported as ServiceError: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := newLogger(&buffer, false, "warn")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "stream_id", 7)
	output := buffer.String()
	if strings.Contains(output, "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(output, `"msg":"kept"`) || !strings.Contains(output, `"stream_id":7`) {
		t.Errorf("unexpected output %q", output)
	}

	if _, err := newLogger(&buffer, false, "loud"); err == nil {
		t.Error("newLogger accepted invalid level")
	}
}

func TestNewLoggerTextOnTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := newLogger(&buffer, true, "")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("stream fetched", "chunks", 3)
	output := buffer.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("terminal logger wrote JSON: %q", output)
	}
	if !strings.Contains(output, "msg=\"stream fetched\"") || !strings.Contains(output, "chunks=3") {
		t.Errorf("unexpected output %q", output)
	}
}
