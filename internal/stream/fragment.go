// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"iter"
	"strings"
)

// =============================================================================
// SENTINEL MARKER
// =============================================================================

const (
	// MarkerTag is the reserved tag that opens a reasoning span.
	MarkerTag = "__REASONING__"

	// Marker is the canonical form of the tag as emitted by the transport.
	Marker = MarkerTag + ":"
)

// CutMarker reports whether text starts with the reasoning tag and returns
// the text with the tag and an optional colon removed.
func CutMarker(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, MarkerTag)
	if !ok {
		return text, false
	}
	return strings.TrimPrefix(rest, ":"), true
}

// =============================================================================
// FRAGMENTS AND EVENTS
// =============================================================================

// Fragment is one step of a streamed response.
type Fragment struct {
	// Text is the raw fragment text, possibly prefixed by Marker.
	Text string

	// Continued marks a fragment that extends the reasoning span opened by
	// an earlier marked fragment. It never carries the marker itself.
	Continued bool
}

// EventKind identifies the channel an Event belongs to.
type EventKind int

const (
	// EventReply is visible reply text.
	EventReply EventKind = iota
	// EventReasoning is a flushed reasoning span.
	EventReasoning
)

// String returns the channel name.
func (k EventKind) String() string {
	switch k {
	case EventReply:
		return "reply"
	case EventReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// Event is a demultiplexed increment of one channel.
type Event struct {
	Kind EventKind
	Text string
}

// Reply builds a reply event.
func Reply(text string) Event {
	return Event{Kind: EventReply, Text: text}
}

// Reasoning builds a reasoning event.
func Reasoning(text string) Event {
	return Event{Kind: EventReasoning, Text: text}
}

// Of returns a finite fragment sequence over frags. It is mostly useful for
// tests and for replaying a completed response.
func Of(frags ...Fragment) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, f := range frags {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// Texts is Of for plain fragment texts.
func Texts(texts ...string) iter.Seq2[Fragment, error] {
	frags := make([]Fragment, len(texts))
	for i, t := range texts {
		frags[i] = Fragment{Text: t}
	}
	return Of(frags...)
}
