// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/chunkstream/lib/clock"
	"github.com/bureau-foundation/chunkstream/lib/config"
	"github.com/bureau-foundation/chunkstream/lib/service"
	"github.com/bureau-foundation/chunkstream/lib/streamregistry"
	"github.com/bureau-foundation/chunkstream/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		socketPath    string
		streamID      int64
		outputPath    string
		wait          time.Duration
		retryInterval time.Duration
		debug         bool
		showVersion   bool
	)
	flagSet := pflag.NewFlagSet("bureau-chunk-fetch", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "chunk service socket (default: service.socket_path from $"+config.EnvVar+")")
	flagSet.Int64Var(&streamID, "stream", -1, "stream id to fetch (required)")
	flagSet.StringVarP(&outputPath, "output", "o", "-", "output file, - for stdout")
	flagSet.DurationVar(&wait, "wait", 0, "keep retrying a reserved stream until it opens, up to this long")
	flagSet.DurationVar(&retryInterval, "retry-interval", 200*time.Millisecond, "delay between retries while waiting")
	flagSet.BoolVar(&debug, "debug", false, "log CBOR diagnostics of every response")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print(os.Stdout, "bureau-chunk-fetch")
		return nil
	}
	if streamID < 0 {
		return errors.New("--stream is required")
	}
	if retryInterval <= 0 {
		return errors.New("--retry-interval must be positive")
	}
	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("no --socket given: %w", err)
		}
		socketPath = cfg.Service.SocketPath
	}

	level := "info"
	if debug {
		level = "debug"
	}
	logger, err := service.NewCommandLogger(level)
	if err != nil {
		return err
	}
	if err := checkOutput(outputPath, term.IsTerminal(int(os.Stdout.Fd()))); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := &fetcher{
		client:        service.NewServiceClient(socketPath),
		clock:         clock.Real(),
		logger:        logger,
		wait:          wait,
		retryInterval: retryInterval,
		debug:         debug,
	}
	id := streamregistry.StreamID(streamID)
	var summary fetchSummary
	if outputPath == "-" {
		summary, err = f.fetchStream(ctx, id, os.Stdout)
	} else {
		summary, err = f.fetchToFile(ctx, id, outputPath)
	}
	if err != nil {
		return err
	}

	logger.Info("stream fetched",
		"stream_id", streamID,
		"chunks", summary.Chunks,
		"bytes", summary.Bytes,
		"size", humanize.IBytes(uint64(summary.Bytes)),
	)
	return nil
}
