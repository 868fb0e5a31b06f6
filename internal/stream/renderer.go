// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"io"
	"strings"
)

// ReasoningLabel prefixes rendered reasoning text.
const ReasoningLabel = "[Thinking]"

// =============================================================================
// DISPLAY SURFACE
// =============================================================================

// Display is the outbound surface of a Renderer.
type Display interface {
	// Write shows text without a trailing newline and flushes it.
	Write(text string) error
	// WriteLine shows text followed by a newline.
	WriteLine(text string) error
}

// ReasoningWriter is implemented by displays that show reasoning in their
// own way (a separate transcript entry, a dimmed block). The renderer hands
// such displays the bare reasoning text instead of a labelled line.
type ReasoningWriter interface {
	WriteReasoning(text string) error
}

// SpeakerAnnouncer is implemented by displays that attribute replies to a
// speaker themselves instead of receiving a "[name] " prefix.
type SpeakerAnnouncer interface {
	BeginReply(speaker string) error
}

// Clearer is implemented by displays that can be wiped.
type Clearer interface {
	Clear() error
}

// WriterDisplay is a Display over an io.Writer. If the writer has a Flush
// method (bufio.Writer) it is called after every write.
type WriterDisplay struct {
	w io.Writer
}

// NewWriterDisplay wraps w.
func NewWriterDisplay(w io.Writer) *WriterDisplay {
	return &WriterDisplay{w: w}
}

// Write implements Display.
func (d *WriterDisplay) Write(text string) error {
	if _, err := io.WriteString(d.w, text); err != nil {
		return err
	}
	return d.flush()
}

// WriteLine implements Display.
func (d *WriterDisplay) WriteLine(text string) error {
	return d.Write(text + "\n")
}

func (d *WriterDisplay) flush() error {
	if f, ok := d.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer writes demultiplexed events to a Display as soon as they arrive.
// A Renderer serves a single turn.
type Renderer struct {
	display       Display
	showReasoning bool

	// atLineStart is true when the last visible output ended with a newline
	// or nothing has been written yet.
	atLineStart bool
}

// NewRenderer creates a renderer for one turn. Reasoning events are only
// displayed when showReasoning is set.
func NewRenderer(d Display, showReasoning bool) *Renderer {
	return &Renderer{
		display:       d,
		showReasoning: showReasoning,
		atLineStart:   true,
	}
}

// Begin attributes the upcoming reply to speaker.
func (r *Renderer) Begin(speaker string) error {
	if speaker == "" {
		return nil
	}
	if a, ok := r.display.(SpeakerAnnouncer); ok {
		return a.BeginReply(speaker)
	}
	return r.write("[" + speaker + "] ")
}

// Render displays a single event.
func (r *Renderer) Render(ev Event) error {
	switch ev.Kind {
	case EventReply:
		if ev.Text == "" {
			return nil
		}
		return r.write(ev.Text)

	case EventReasoning:
		if !r.showReasoning {
			return nil
		}
		if err := r.breakLine(); err != nil {
			return err
		}
		if w, ok := r.display.(ReasoningWriter); ok {
			return w.WriteReasoning(ev.Text)
		}
		if err := r.display.WriteLine(ReasoningLabel + " " + ev.Text); err != nil {
			return err
		}
		r.atLineStart = true
		return nil

	default:
		return fmt.Errorf("stream: unknown event kind %d", ev.Kind)
	}
}

// Finish terminates the current line if the reply left it open.
func (r *Renderer) Finish() error {
	return r.breakLine()
}

func (r *Renderer) write(text string) error {
	if err := r.display.Write(text); err != nil {
		return err
	}
	r.atLineStart = strings.HasSuffix(text, "\n")
	return nil
}

func (r *Renderer) breakLine() error {
	if r.atLineStart {
		return nil
	}
	if err := r.display.WriteLine(""); err != nil {
		return err
	}
	r.atLineStart = true
	return nil
}
