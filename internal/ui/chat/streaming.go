// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/animusuno/animus-chat/internal/session"
)

// frameInterval paces transcript updates while a turn runs (~30fps).
const frameInterval = 33 * time.Millisecond

// =============================================================================
// DISPLAY OPERATIONS
// =============================================================================

type opKind int

const (
	opBeginReply opKind = iota
	opText
	opEndLine
	opReasoning
	opLine
	opClear
)

// displayOp is one write made by the session loop, replayed onto the
// transcript by the Update loop.
type displayOp struct {
	kind    opKind
	text    string
	speaker string
	style   session.LineKind
}

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer queues display operations between frames. The turn
// goroutine pushes; the Update loop drains on every frame tick, so a reply
// arriving in hundreds of fragments costs one redraw per frame.
//
// Consecutive text writes are merged.
type StreamingBuffer struct {
	mu  sync.Mutex
	ops []displayOp
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{}
}

func (sb *StreamingBuffer) push(op displayOp) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if op.kind == opText && len(sb.ops) > 0 {
		if last := &sb.ops[len(sb.ops)-1]; last.kind == opText {
			last.text += op.text
			return
		}
	}
	sb.ops = append(sb.ops, op)
}

// drain returns and removes all queued operations.
func (sb *StreamingBuffer) drain() []displayOp {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	ops := sb.ops
	sb.ops = nil
	return ops
}

// Pending returns the number of queued operations.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.ops)
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// StreamTickMsg triggers a transcript update while a turn runs.
type StreamTickMsg struct {
	Time time.Time
}

func streamTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
