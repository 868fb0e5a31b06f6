// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream separates the reasoning channel from the reply channel of a
// streamed agent response and renders both as they arrive.
//
// # Key Types
//
//   - Fragment: one step of a streamed response as delivered by the transport
//   - Event: a demultiplexed Reasoning or Reply increment
//   - Renderer: writes events to a Display the moment they arrive
//   - Display: the outbound surface (terminal stream or UI widget)
//
// # Framing
//
// A reasoning span starts with a fragment prefixed by Marker. Fragments the
// transport flags as Continued extend the open span. The first plain fragment
// closes the span and flushes it as one Reasoning event.
//
// # Usage
//
//	r := stream.NewRenderer(stream.NewWriterDisplay(os.Stdout), showReasoning)
//	for ev, err := range stream.Demux(fragments) {
//	    if err != nil {
//	        return err
//	    }
//	    r.Render(ev)
//	}
//	r.Finish()
package stream
