// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vibe

import (
	"context"
	"fmt"
	"os/exec"
)

// Status is the control state plus whether the recorded process is alive.
type Status struct {
	State
	Alive bool
}

// Running reports whether a runner is active.
func (s Status) Running() bool {
	return s.Alive && s.Status == StatusRunning
}

// Controller starts and stops the runner process.
type Controller struct {
	ControlFile string

	// Executable and Args launch the runner, e.g. os.Executable() and
	// {"vibe", "run"}.
	Executable string
	Args       []string

	// processAlive is replaceable in tests.
	processAlive func(pid int) bool
}

// NewController creates a controller that launches exe with args.
func NewController(controlFile, exe string, args ...string) *Controller {
	return &Controller{
		ControlFile:  controlFile,
		Executable:   exe,
		Args:         args,
		processAlive: processAlive,
	}
}

// Start launches the runner unless one is already running. It reports
// whether a new process was started.
func (c *Controller) Start(_ context.Context) (bool, error) {
	st, err := c.Status()
	if err != nil {
		return false, err
	}
	if st.Running() {
		return false, nil
	}

	if _, err := UpdateState(c.ControlFile, func(s *State) {
		s.Status = StatusStarting
		s.LastCommand = CommandStart
		s.Timestamp = now()
	}); err != nil {
		return false, err
	}

	cmd := exec.Command(c.Executable, c.Args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedProcAttr()
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("failed to start vibe runner: %w", err)
	}
	// The runner outlives this process.
	_ = cmd.Process.Release()
	return true, nil
}

// Stop asks the runner to exit after its current cycle.
func (c *Controller) Stop() error {
	return WriteCommand(c.ControlFile, CommandStop)
}

// Status reads the control file and checks the recorded process.
func (c *Controller) Status() (Status, error) {
	st, err := ReadState(c.ControlFile)
	if err != nil {
		return Status{}, err
	}
	alive := c.processAlive
	if alive == nil {
		alive = processAlive
	}
	return Status{State: st, Alive: st.PID > 0 && alive(st.PID)}, nil
}
