// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/stream"
	"github.com/animusuno/animus-chat/internal/ui/styles"
)

// =============================================================================
// ENTRIES
// =============================================================================

type entryKind int

const (
	entryUser entryKind = iota
	entryAgent
	entryReasoning
	entrySystem
)

// entry is one block of the transcript.
type entry struct {
	kind    entryKind
	speaker string
	text    strings.Builder
	style   session.LineKind

	// open marks an agent entry still receiving text.
	open bool

	// continued marks an agent entry that resumes a reply after a
	// reasoning entry; it is drawn without the speaker label.
	continued bool

	rendered      string
	renderedWidth int
}

// transcript is the list of entries shown in the viewport.
type transcript struct {
	entries []*entry
	speaker string

	// labelled is set once the current reply has shown its speaker.
	labelled bool
}

func newTranscript() *transcript {
	return &transcript{}
}

func (t *transcript) last() *entry {
	if len(t.entries) == 0 {
		return nil
	}
	return t.entries[len(t.entries)-1]
}

func (t *transcript) add(e *entry) *entry {
	t.entries = append(t.entries, e)
	return e
}

// addUser records a message typed by the user.
func (t *transcript) addUser(name, text string) {
	e := &entry{kind: entryUser, speaker: name}
	e.text.WriteString(text)
	t.add(e)
}

// addSystem records a local line, such as an echoed command.
func (t *transcript) addSystem(kind session.LineKind, text string) {
	e := &entry{kind: entrySystem, style: kind}
	e.text.WriteString(text)
	t.add(e)
}

// apply replays one display operation.
func (t *transcript) apply(op displayOp) {
	switch op.kind {
	case opBeginReply:
		t.closeReply()
		t.speaker = op.speaker
		t.labelled = false
		t.add(&entry{kind: entryAgent, speaker: op.speaker, open: true})

	case opText:
		e := t.last()
		if e == nil || e.kind != entryAgent || !e.open {
			e = t.add(&entry{kind: entryAgent, speaker: t.speaker, open: true, continued: t.labelled})
		}
		e.text.WriteString(op.text)
		e.renderedWidth = 0
		t.labelled = true

	case opEndLine:
		t.closeReply()

	case opReasoning:
		t.closeReply()
		e := &entry{kind: entryReasoning}
		e.text.WriteString(op.text)
		t.add(e)

	case opLine:
		t.closeReply()
		t.addSystem(op.style, op.text)

	case opClear:
		t.entries = nil
		t.labelled = false
	}
}

// closeReply closes the open agent entry, dropping it if it stayed empty.
func (t *transcript) closeReply() {
	e := t.last()
	if e == nil || e.kind != entryAgent || !e.open {
		return
	}
	e.open = false
	e.renderedWidth = 0
	if strings.TrimSpace(e.text.String()) == "" {
		t.entries = t.entries[:len(t.entries)-1]
	}
}

// finish closes whatever the last turn left open.
func (t *transcript) finish() {
	t.closeReply()
}

// =============================================================================
// RENDERING
// =============================================================================

// markdown renders finished replies. A nil markdown renders plain text.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(theme *styles.Theme) *markdown {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	return &markdown{style: style}
}

func (md *markdown) render(text string, width int) (string, bool) {
	if md == nil {
		return "", false
	}
	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", false
		}
		md.renderer, md.width = r, width
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return "", false
	}
	return strings.Trim(out, "\n"), true
}

// render draws the transcript at width.
func (t *transcript) render(width int, theme *styles.Theme, md *markdown) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	for i, e := range t.entries {
		if i > 0 {
			b.WriteString(separator(t.entries[i-1], e))
		}
		b.WriteString(e.view(width, theme, md))
	}
	return b.String()
}

// separator puts a blank line before each new speaker.
func separator(prev, cur *entry) string {
	switch {
	case cur.kind == entryReasoning, cur.kind == entryAgent && cur.continued:
		return "\n"
	case cur.kind == entrySystem && prev.kind == entrySystem:
		return "\n"
	default:
		return "\n\n"
	}
}

func (e *entry) view(width int, theme *styles.Theme, md *markdown) string {
	if !e.open && e.renderedWidth == width {
		return e.rendered
	}

	text := e.text.String()
	var out string
	switch e.kind {
	case entryUser:
		out = theme.UserLabel.Render(e.speaker) + "\n" + theme.UserText.Width(width).Render(text)

	case entryAgent:
		body, ok := "", false
		if !e.open {
			body, ok = md.render(text, width)
		}
		if !ok {
			body = theme.AgentText.Width(width).Render(strings.TrimRight(text, "\n"))
		}
		if e.continued {
			out = body
		} else {
			out = theme.AgentLabel.Render(e.speaker) + "\n" + body
		}

	case entryReasoning:
		out = theme.Reasoning.Width(width).Render(stream.ReasoningLabel + " " + text)

	case entrySystem:
		out = systemStyle(theme, e.style).Width(width).Render(text)
	}

	if !e.open {
		e.rendered, e.renderedWidth = out, width
	}
	return out
}

func systemStyle(theme *styles.Theme, kind session.LineKind) lipgloss.Style {
	switch kind {
	case session.LineHeader:
		return theme.HeaderTitle
	case session.LineSuccess:
		return theme.Success
	case session.LineError:
		return theme.ErrorText
	default:
		return theme.SystemText
	}
}
