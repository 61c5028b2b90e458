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

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkstream/lib/clock"
	"github.com/bureau-foundation/chunkstream/lib/config"
	"github.com/bureau-foundation/chunkstream/lib/service"
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
		configPath  string
		socketPath  string
		logLevel    string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("bureau-chunk-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&socketPath, "socket", "", "override service.socket_path")
	flagSet.StringVar(&logLevel, "log-level", "", "override log.level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print(os.Stdout, "bureau-chunk-service")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Service.SocketPath = socketPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, err := service.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}

	chunkService, err := newChunkService(cfg, clock.Real(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := service.NewSocketServer(cfg.Service.SocketPath, logger)
	chunkService.registerActions(server)

	logger.Info("chunk service starting",
		"version", version.Info(),
		"environment", cfg.Environment,
		"data_dir", cfg.Service.DataDir,
		"chunk_size", cfg.Service.ChunkSize,
		"compression", chunkService.compression.String(),
	)

	if err := server.Serve(ctx); err != nil {
		return err
	}
	logger.Info("chunk service stopped",
		"streams", chunkService.registry.StreamCount(),
		"pending_reservations", chunkService.registry.PendingCount(),
	)
	return nil
}

// loadConfig reads path, or the file named by the environment when
// path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
