// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the chat client: atomic file
// writes for config and state files, and display-safe text handling for
// agent output.
package util
