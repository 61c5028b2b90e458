// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger returns the JSON logger binaries write to stderr and
// installs it as the slog default. level is a slog level name
// ("debug", "info", "warn", "error"); empty means info.
func NewLogger(level string) (*slog.Logger, error) {
	return newLogger(os.Stderr, false, level)
}

// NewCommandLogger returns the logger for interactive command-line
// tools. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped or redirected it uses
// the same JSON format as the service.
func NewCommandLogger(level string) (*slog.Logger, error) {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(output io.Writer, text bool, level string) (*slog.Logger, error) {
	var parsed slog.Level
	if level != "" {
		if err := parsed.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	options := &slog.HandlerOptions{Level: parsed}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(output, options)
	} else {
		handler = slog.NewJSONHandler(output, options)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
