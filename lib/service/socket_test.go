// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/chunkstream/lib/codec"
	"github.com/bureau-foundation/chunkstream/lib/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs server in the background and stops it when the
// test ends.
func startServer(t *testing.T, server *SocketServer, socketPath string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Serve to return"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	testutil.RequireListening(t, socketPath, 5*time.Second)
}

// sendRequest writes one CBOR request and decodes the response.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func decodeData(t *testing.T, response Response, target any) {
	t.Helper()
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func TestSocketServerDispatch(t *testing.T) {
	socketPath := testutil.SocketPath(t, "service.sock")
	server := NewSocketServer(socketPath, testLogger())

	type echoRequest struct {
		Value string `cbor:"value"`
	}
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request echoRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]string{"echoed": request.Value}, nil
	})
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("stream 42 not found")
	})
	startServer(t, server, socketPath)

	t.Run("data", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]any{"action": "echo", "value": "hello"})
		if !response.OK {
			t.Fatalf("response not ok: %s", response.Error)
		}
		var data map[string]string
		decodeData(t, response, &data)
		if data["echoed"] != "hello" {
			t.Errorf("echoed = %q, want hello", data["echoed"])
		}
	})

	t.Run("nil result", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]any{"action": "ping"})
		if !response.OK {
			t.Fatalf("response not ok: %s", response.Error)
		}
		if len(response.Data) != 0 {
			t.Errorf("data = %x, want empty", []byte(response.Data))
		}
	})

	t.Run("handler error", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]any{"action": "fail"})
		if response.OK {
			t.Fatal("response ok, want failure")
		}
		if response.Error != "stream 42 not found" {
			t.Errorf("error = %q", response.Error)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]any{"action": "nope"})
		if response.OK || !strings.Contains(response.Error, `unknown action "nope"`) {
			t.Errorf("response = %+v", response)
		}
	})

	t.Run("missing action", func(t *testing.T) {
		response := sendRequest(t, socketPath, map[string]any{"value": "x"})
		if response.OK || !strings.Contains(response.Error, "missing required field: action") {
			t.Errorf("response = %+v", response)
		}
	})
}

type notifyingResult struct {
	Payload []byte `cbor:"payload"`

	sent chan error
}

func (r *notifyingResult) ResponseSent(err error) {
	r.sent <- err
}

func TestSocketServerNotifiesAfterWrite(t *testing.T) {
	socketPath := testutil.SocketPath(t, "service.sock")
	server := NewSocketServer(socketPath, testLogger())

	sent := make(chan error, 1)
	payload := bytes.Repeat([]byte("chunk"), 1000)
	server.Handle("fetch", func(ctx context.Context, raw []byte) (any, error) {
		return &notifyingResult{Payload: payload, sent: sent}, nil
	})
	startServer(t, server, socketPath)

	response := sendRequest(t, socketPath, map[string]any{"action": "fetch"})
	if !response.OK {
		t.Fatalf("response not ok: %s", response.Error)
	}
	var data struct {
		Payload []byte `cbor:"payload"`
	}
	decodeData(t, response, &data)
	if !bytes.Equal(data.Payload, payload) {
		t.Error("payload mismatch")
	}

	if err := testutil.RequireReceive(t, sent, 5*time.Second, "waiting for ResponseSent"); err != nil {
		t.Errorf("ResponseSent(%v), want nil", err)
	}
}

func TestSocketServerDrainsOnShutdown(t *testing.T) {
	socketPath := testutil.SocketPath(t, "service.sock")
	server := NewSocketServer(socketPath, testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(entered)
		<-release
		return map[string]bool{"finished": true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.RequireListening(t, socketPath, 5*time.Second)

	responses := make(chan Response, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		responses <- sendRequest(t, socketPath, map[string]any{"action": "slow"})
	}()

	testutil.RequireClosed(t, entered, 5*time.Second, "handler never entered")
	cancel()
	close(release)

	response := testutil.RequireReceive(t, responses, 5*time.Second, "waiting for in-flight response")
	if !response.OK {
		t.Errorf("in-flight request failed: %s", response.Error)
	}
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "waiting for Serve"); err != nil {
		t.Errorf("Serve: %v", err)
	}
	wg.Wait()

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}
}

func TestSocketServerReplacesStaleSocket(t *testing.T) {
	socketPath := testutil.SocketPath(t, "service.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	server := NewSocketServer(socketPath, testLogger())
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server, socketPath)

	if response := sendRequest(t, socketPath, map[string]any{"action": "ping"}); !response.OK {
		t.Errorf("ping failed: %s", response.Error)
	}
}

func TestHandleDuplicatePanics(t *testing.T) {
	server := NewSocketServer("/unused", testLogger())
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Error("duplicate Handle did not panic")
		}
	}()
	server.Handle("ping", func(ctx context.Context, raw []byte) (any, error) { return nil, nil })
}
