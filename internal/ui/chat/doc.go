// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat interface (animus tui).

The package wraps a session.Loop in a Bubble Tea program. Turns run in a
tea.Cmd; the loop writes to a Display that queues transcript operations,
and the model applies them on a frame tick so long replies do not redraw
the screen once per fragment.

# Key Components

## Model (model.go)

The Model holds the transcript, the input line, the viewport and the
spinner. Input is disabled while a turn is running; Esc or Ctrl+C cancels
the turn in flight.

## Display (display.go)

Display implements stream.Display plus the optional upgrades:
  - BeginReply starts a new agent entry attributed to the speaker
  - WriteReasoning adds a separate, dimmed reasoning entry
  - WriteStyled adds command output as system lines
  - Clear empties the transcript

## Transcript (transcript.go)

Entries are rendered once per width and cached. Finished agent replies are
rendered as markdown with glamour; a reply still streaming is shown as
wrapped plain text.

# Usage

	loop := session.NewLoop(client, display, opts)
	m := chat.New(loop, display, chat.Options{Theme: styles.NewTheme("auto")})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
