// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/animusuno/animus-chat/internal/session"
)

// Display is the session loop's output surface inside the full-screen UI.
// It is safe to call from the turn goroutine; writes are applied on the
// next frame.
type Display struct {
	buf *StreamingBuffer
}

// NewDisplay creates a display with an empty buffer.
func NewDisplay() *Display {
	return &Display{buf: NewStreamingBuffer()}
}

// Write appends reply text to the current agent entry.
func (d *Display) Write(text string) error {
	if text != "" {
		d.buf.push(displayOp{kind: opText, text: text})
	}
	return nil
}

// WriteLine closes the current reply line. Non-empty text becomes a system
// line.
func (d *Display) WriteLine(text string) error {
	if text == "" {
		d.buf.push(displayOp{kind: opEndLine})
		return nil
	}
	d.buf.push(displayOp{kind: opLine, text: text, style: session.LineInfo})
	return nil
}

// WriteReasoning adds a reasoning entry.
func (d *Display) WriteReasoning(text string) error {
	d.buf.push(displayOp{kind: opReasoning, text: text})
	return nil
}

// BeginReply starts an agent entry attributed to speaker.
func (d *Display) BeginReply(speaker string) error {
	d.buf.push(displayOp{kind: opBeginReply, speaker: speaker})
	return nil
}

// WriteStyled adds command output.
func (d *Display) WriteStyled(kind session.LineKind, text string) error {
	d.buf.push(displayOp{kind: opLine, text: text, style: kind})
	return nil
}

// Clear empties the transcript.
func (d *Display) Clear() error {
	d.buf.push(displayOp{kind: opClear})
	return nil
}
