// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation history kept by a chat session.
//
// # Key Types
//
//   - Conversation: the turns of one session, bounded by MaxMessages
//   - Message: one user input, agent reply, or system note
//   - Role: who produced a message
//
// History lives in memory only and is appended to after a turn completes.
package model
