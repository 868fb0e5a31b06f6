// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"encoding/json"
	"strings"
)

// Letta message types.
const (
	MessageTypeAssistant  = "assistant_message"
	MessageTypeReasoning  = "reasoning_message"
	MessageTypeToolCall   = "tool_call_message"
	MessageTypeToolReturn = "tool_return_message"
	MessageTypeUsage      = "usage_statistics"
	MessageTypeStopReason = "stop_reason"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Version string `json:"version"`
	Status  string `json:"status"`
}

// LLMConfig is the part of an agent's model configuration shown to users.
type LLMConfig struct {
	Model string `json:"model"`
}

// Agent is an entry of the agent directory.
type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LLMConfig   LLMConfig `json:"llm_config,omitempty"`
}

// DisplayName returns the agent name, falling back to its ID.
func (a Agent) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// userMessage is one input message.
type userMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageRequest is the body of both message endpoints.
type messageRequest struct {
	Messages     []userMessage `json:"messages"`
	StreamTokens bool          `json:"stream_tokens,omitempty"`
}

func newMessageRequest(text string, streaming bool) messageRequest {
	return messageRequest{
		Messages:     []userMessage{{Role: "user", Content: text}},
		StreamTokens: streaming,
	}
}

// messageResponse is the body of the synchronous message endpoint.
type messageResponse struct {
	Messages []lettaMessage `json:"messages"`
}

// lettaMessage is a response message, either from the synchronous endpoint
// or from one stream event.
type lettaMessage struct {
	ID          string          `json:"id,omitempty"`
	MessageType string          `json:"message_type"`
	Content     json.RawMessage `json:"content,omitempty"`
	Reasoning   string          `json:"reasoning,omitempty"`
	StopReason  string          `json:"stop_reason,omitempty"`
	Error       *serverError    `json:"error,omitempty"`
}

// serverError is the payload of an error stream event.
type serverError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *serverError) text() string {
	switch {
	case e.Message != "" && e.Detail != "":
		return e.Message + ": " + e.Detail
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	default:
		return e.Type
	}
}

// contentPart is one element of list-form message content.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text returns the message content. Content is either a plain string or a
// list of typed parts, of which the text parts are joined.
func (m *lettaMessage) Text() string {
	if len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// apiErrorBody covers the error shapes returned by the server.
type apiErrorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (b apiErrorBody) text() string {
	if len(b.Detail) > 0 {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil {
			return s
		}
		return string(b.Detail)
	}
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}
