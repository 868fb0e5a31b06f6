// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/animusuno/animus-chat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the sender of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAgent:
		return "Agent"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of the conversation history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Speaker is the user's display name or the agent's name.
	Speaker string `json:"speaker,omitempty"`

	// Content is the visible text. For agent messages this is the full
	// turn result, including displayed reasoning.
	Content string `json:"content"`

	// Reasoning holds the agent's reasoning text when it was shown.
	Reasoning string `json:"reasoning,omitempty"`

	// Failed marks a system note recording a failed turn.
	Failed bool `json:"failed,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, speaker, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Speaker:   speaker,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// DisplaySpeaker returns the speaker, falling back to the role's name.
func (m *Message) DisplaySpeaker() string {
	if m.Speaker != "" {
		return m.Speaker
	}
	return m.Role.DisplayName()
}

// Preview returns the content cut to maxRunes characters.
func (m *Message) Preview(maxRunes int) string {
	return util.TruncateRunes(m.Content, maxRunes)
}

// IsEmpty reports whether the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && m.Reasoning == ""
}
