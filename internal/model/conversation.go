// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessages bounds the history; the oldest messages are pruned first.
const MaxMessages = 1000

// Conversation is the in-memory history of one chat session.
type Conversation struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`

	maxMessages int
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    make([]*Message, 0),
		maxMessages: MaxMessages,
	}
}

// SetMaxMessages changes the history bound. Values below 1 are ignored.
func (c *Conversation) SetMaxMessages(n int) {
	if n < 1 {
		return
	}
	c.maxMessages = n
	c.prune()
}

// AddMessage appends msg.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.prune()
}

// AddUserMessage appends the user's input.
func (c *Conversation) AddUserMessage(speaker, content string) *Message {
	msg := NewMessage(RoleUser, speaker, content)
	c.AddMessage(msg)
	return msg
}

// AddAgentMessage appends a completed agent reply.
func (c *Conversation) AddAgentMessage(speaker, content, reasoning string) *Message {
	msg := NewMessage(RoleAgent, speaker, content)
	msg.Reasoning = reasoning
	c.AddMessage(msg)
	return msg
}

// AddFailure appends a note recording a failed turn.
func (c *Conversation) AddFailure(reason string) *Message {
	msg := NewMessage(RoleSystem, "", reason)
	msg.Failed = true
	c.AddMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAgentMessage returns the most recent agent reply, or nil.
func (c *Conversation) LastAgentMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAgent {
			return c.Messages[i]
		}
	}
	return nil
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clear drops all messages and starts a new conversation ID.
func (c *Conversation) Clear() {
	c.Messages = c.Messages[:0]
	c.ID = uuid.NewString()
	c.UpdatedAt = time.Now()
}

// Turns counts user messages.
func (c *Conversation) Turns() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

func (c *Conversation) prune() {
	limit := c.maxMessages
	if limit <= 0 {
		limit = MaxMessages
	}
	if excess := len(c.Messages) - limit; excess > 0 {
		// Copy so the dropped messages can be collected.
		kept := make([]*Message, limit)
		copy(kept, c.Messages[excess:])
		c.Messages = kept
	}
}
