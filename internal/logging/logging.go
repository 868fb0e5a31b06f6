// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the client's slog logger.
//
// Logs always go to a file. With --verbose or --debug they are also copied
// to the console (stderr, so they never mix with streamed replies on stdout).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures New.
type Options struct {
	Verbose bool
	Debug   bool

	// File is the log file path. Empty disables file logging.
	File string

	// Console receives a copy of the logs when Verbose or Debug is set.
	// Defaults to os.Stderr.
	Console io.Writer
}

// Level returns the minimum log level. Verbose does not change it; it only
// adds the console as a destination.
func Level(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// New creates the logger and returns a cleanup function that closes the log
// file. If the file cannot be opened the logger falls back to the console
// (or discards, when the console is off) and the error is returned alongside
// a usable logger.
func New(opts Options) (*slog.Logger, func(), error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	toConsole := opts.Verbose || opts.Debug

	var writers []io.Writer
	if toConsole {
		writers = append(writers, console)
	}

	cleanup := func() {}
	var openErr error
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			openErr = err
		} else {
			writers = append(writers, f)
			cleanup = func() { f.Close() }
		}
	}

	if len(writers) == 0 {
		return slog.New(slog.DiscardHandler), cleanup, openErr
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: Level(opts.Debug),
	})
	return slog.New(handler), cleanup, openErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
