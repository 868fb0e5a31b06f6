// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the animus command line.
//
// # Commands Overview
//
//   - chat: interactive chat session (the default)
//   - tui: full-screen chat
//   - ask: one question, one answer
//   - agents: list the agents on the server
//   - setup: interactive configuration wizard
//   - config: show the effective configuration and file locations
//   - vibe: run or control autonomous vibe mode
//   - version: print build information
//
// Global flags (-v, -d, -r, --config, --env-file, --agent) apply to every
// command.
package cli
