// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs chat turns against a Letta agent.
//
// A Loop takes one line of user input at a time. Slash commands are handled
// locally; anything else is sent to the agent and streamed back through the
// demultiplexer and renderer from package stream.
//
// # Usage
//
//	loop := session.NewLoop(client, display, session.Options{
//	    DisplayName:   cfg.User.DisplayName,
//	    ShowReasoning: cfg.Display.ShowReasoning,
//	})
//	for line := range input {
//	    res := loop.RunTurn(ctx, line)
//	    if res.Outcome == session.OutcomeQuit {
//	        break
//	    }
//	}
//
// Turns never run concurrently. The conversation history is appended only
// after a turn completes.
package session
