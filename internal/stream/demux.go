// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"iter"
	"strings"
)

// Demux splits a fragment sequence into Reasoning and Reply events.
//
// A fragment carrying the marker opens (or extends) a reasoning span and is
// buffered. A Continued fragment extends an open span. Any other fragment
// flushes the open span as a single Reasoning event and is then emitted as a
// Reply. A span still open at the end of the sequence is flushed if it holds
// any text.
//
// The returned sequence is lazy and single-use, like its source. An error
// from the source is yielded once and ends iteration; buffered reasoning is
// dropped in that case.
func Demux(fragments iter.Seq2[Fragment, error]) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		var (
			inSpan bool
			buf    strings.Builder
		)

		flush := func() bool {
			inSpan = false
			if buf.Len() == 0 {
				return true
			}
			text := buf.String()
			buf.Reset()
			return yield(Reasoning(text), nil)
		}

		for frag, err := range fragments {
			if err != nil {
				yield(Event{}, err)
				return
			}

			if body, ok := CutMarker(frag.Text); ok {
				inSpan = true
				buf.WriteString(body)
				continue
			}

			if inSpan {
				if frag.Continued {
					buf.WriteString(frag.Text)
					continue
				}
				if !flush() {
					return
				}
			}

			if !yield(Reply(frag.Text), nil) {
				return
			}
		}

		if inSpan {
			flush()
		}
	}
}

// Collect drains events and returns the concatenated reasoning and reply
// text. It stops at the first error.
func Collect(events iter.Seq2[Event, error]) (reasoning, reply string, err error) {
	var rb, pb strings.Builder
	for ev, err := range events {
		if err != nil {
			return rb.String(), pb.String(), err
		}
		switch ev.Kind {
		case EventReasoning:
			rb.WriteString(ev.Text)
		case EventReply:
			pb.WriteString(ev.Text)
		}
	}
	return rb.String(), pb.String(), nil
}
