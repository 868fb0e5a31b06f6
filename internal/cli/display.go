// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/stream"
)

// TerminalDisplay writes chat output to a terminal or any io.Writer.
// It implements stream.Display plus the reasoning, clear and styled-line
// upgrades.
type TerminalDisplay struct {
	mu  sync.Mutex
	w   io.Writer
	out *termenv.Output

	// isTTY gates escape sequences such as screen clearing.
	isTTY bool
}

// NewTerminalDisplay creates a display over w.
func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		w:     w,
		out:   termenv.NewOutput(w),
		isTTY: isTerminalFile(w),
	}
}

// Write implements stream.Display.
func (d *TerminalDisplay) Write(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(text)
}

// WriteLine implements stream.Display.
func (d *TerminalDisplay) WriteLine(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(text + "\n")
}

// WriteReasoning shows reasoning dimmed, on its own lines.
func (d *TerminalDisplay) WriteReasoning(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(renderLines(DimStyle, stream.ReasoningLabel+" "+text) + "\n")
}

// WriteStyled writes a command output line.
func (d *TerminalDisplay) WriteStyled(kind session.LineKind, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch kind {
	case session.LineHeader:
		text = renderLines(SectionStyle, text)
	case session.LineSuccess:
		text = renderLines(SuccessStyle, text)
	case session.LineError:
		text = renderLines(ErrorStyle, text)
	}
	return d.write(text + "\n")
}

// Clear clears the screen when writing to a terminal.
func (d *TerminalDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isTTY {
		return nil
	}
	d.out.ClearScreen()
	return nil
}

func (d *TerminalDisplay) write(text string) error {
	if text == "" {
		return nil
	}
	if _, err := io.WriteString(d.w, text); err != nil {
		return err
	}
	if f, ok := d.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// printBanner writes the chat banner.
func printBanner(d *TerminalDisplay) {
	rule := RenderSeparator(60)
	title := "ANIMUS CHAT CLIENT"
	pad := (60 - len(title)) / 2
	d.WriteLine(rule)
	d.WriteLine(strings.Repeat(" ", pad) + BannerStyle.Render(title))
	d.WriteLine(rule)
	d.WriteLine("")
}
