// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/animusuno/animus-chat/internal/config"
	"github.com/animusuno/animus-chat/internal/letta"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates an authentication failure
	ExitAuthError = 4
	// ExitNetworkError indicates the server could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitInterrupted indicates the user interrupted the command
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a command failure with the exit code to report.
type CommandError struct {
	Command string // Command that failed (e.g., "ask", "vibe start")
	Reason  string // Human-readable reason
	Code    int    // Exit code; zero means derive it from Err
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("%s: %s: %v", e.Command, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Command, e.Reason)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a command error.
func NewCommandError(command, reason string, err error) error {
	return &CommandError{Command: command, Reason: reason, Err: err}
}

// configError reports an invalid configuration.
func configError(command string, err error) error {
	return &CommandError{
		Command: command,
		Reason:  "invalid configuration (run 'animus setup')",
		Code:    ExitConfigError,
		Err:     err,
	}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != 0 {
		return cmdErr.Code
	}

	var validation config.ValidateErrors
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &validation), errors.Is(err, letta.ErrNotConfigured):
		return ExitConfigError
	case errors.Is(err, letta.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, letta.ErrAgentNotFound), errors.Is(err, letta.ErrNoAgent):
		return ExitNotFoundError
	case errors.As(err, &netErr):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
