// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"errors"
	"fmt"
)

// Error types for Letta operations.
var (
	// ErrNotConfigured is returned when the server URL or token is missing.
	ErrNotConfigured = errors.New("letta client not configured: server URL and API token required")

	// ErrNoAgent is returned when a message is sent before an agent is selected.
	ErrNoAgent = errors.New("no agent selected")

	// ErrAuthFailed is returned when the server rejects the token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrAgentNotFound is returned when the agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrRateLimited is returned when the server throttles requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyResponse is returned when a reply contains no assistant message.
	ErrEmptyResponse = errors.New("no response received")

	// ErrInvalidChoice is returned when an agent number is out of range.
	ErrInvalidChoice = errors.New("invalid agent choice")

	// ErrEventTooLarge is returned when one SSE event exceeds MaxEventSize.
	ErrEventTooLarge = errors.New("stream event too large")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("letta API error (status %d)", e.Status)
	}
	return fmt.Sprintf("letta API error (status %d): %s", e.Status, e.Message)
}

// StreamError is an error raised after a stream started, with the reply text
// received before it.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
