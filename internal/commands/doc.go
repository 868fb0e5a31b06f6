// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands parses the local slash commands of the chat session.
//
// Input starting with "/" is resolved against the Registry into a Command
// whose Kind selects the handler. Unrecognized names parse to KindUnknown
// rather than an error, so the caller can answer with a help hint.
//
// # Usage
//
//	cmd, ok := commands.Parse(input)
//	if !ok {
//	    // ordinary chat text
//	}
//	switch cmd.Kind {
//	case commands.KindHelp:
//	    ...
//	}
package commands
