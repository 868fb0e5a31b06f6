// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package letta is the HTTP client for a Letta agent server.
//
// It covers the small part of the REST API the chat client needs: the health
// check, the agent directory, and sending a user message either synchronously
// or as a token stream.
//
// # Streaming
//
// SendMessageStream returns an iter.Seq2 of stream.Fragment values. Assistant
// text becomes plain fragments. When reasoning is requested, the first
// reasoning chunk of a run is prefixed with stream.Marker and the chunks that
// follow it are flagged Continued, so stream.Demux can separate the channels.
//
// # Usage
//
//	client := letta.NewClient(cfg.Server.URL, cfg.Server.Token).
//	    WithLogger(logger)
//	if err := client.SelectAgent(agentID); err != nil {
//	    return err
//	}
//	for frag, err := range client.SendMessageStream(ctx, "hi", true) {
//	    ...
//	}
package letta
