// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vibe runs autonomous "vibe" prompts against the current agent.
//
// A Runner lives in its own process ("animus vibe run") and sends the
// configured prompt every interval. Its state is kept in a JSON control file
// that other processes read for status and write to request a stop. The
// runner watches that file with fsnotify, falling back to polling.
//
// Controller is the other side: it starts the runner process, requests
// stops, and reports status for the chat session's /vibe command.
package vibe
