// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vibe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/animusuno/animus-chat/internal/util"
)

// Status values.
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusStopped  = "stopped"
)

// Command values.
const (
	CommandStart = "start"
	CommandStop  = "stop"
)

// State is the content of the control file.
type State struct {
	Status      string `json:"status,omitempty"`
	LastCommand string `json:"last_command,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	PID         int    `json:"pid,omitempty"`
	LastRun     string `json:"last_run,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Runs        int    `json:"runs,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// StopRequested reports whether the state asks the runner to exit.
func (s State) StopRequested() bool {
	return s.LastCommand == CommandStop || s.Status == StatusStopped
}

// ReadState reads the control file. A missing file is an empty state.
func ReadState(path string) (State, error) {
	var s State
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read control file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to parse control file: %w", err)
	}
	return s, nil
}

// WriteState replaces the control file atomically.
func WriteState(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode control file: %w", err)
	}
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write control file: %w", err)
	}
	return nil
}

// UpdateState applies fn to the current state and writes the result. The
// read and the write happen under an exclusive lock shared by every process
// using the control file, so concurrent updates are never lost.
func UpdateState(path string, fn func(*State)) (State, error) {
	var s State
	err := withLock(path, func() error {
		var rerr error
		if s, rerr = ReadState(path); rerr != nil {
			// A corrupt file is replaced rather than blocking control.
			s = State{}
		}
		fn(&s)
		return WriteState(path, s)
	})
	return s, err
}

// withLock runs fn holding the lock file next to path.
func withLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create control directory: %w", err)
	}
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open control lock: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("failed to lock control file: %w", err)
	}
	defer unlockFile(f)
	return fn()
}

// WriteCommand records a command for the runner.
func WriteCommand(path, command string) error {
	_, err := UpdateState(path, func(s *State) {
		s.LastCommand = command
		s.Timestamp = now()
	})
	return err
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
