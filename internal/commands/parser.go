// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"strings"
	"unicode"
)

// Prefix marks a line as a local command.
const Prefix = "/"

// ErrUnknownCommand is reported for names that match no command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a parsed slash command.
type Command struct {
	Kind Kind

	// Name is the command name as typed, e.g. "/list".
	Name string

	// Args are the whitespace-separated arguments; quotes group words.
	Args []string

	// RawArgs is everything after the name, trimmed.
	RawArgs string
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse parses input with the default registry. ok is false when input is
// not a command at all.
func Parse(input string) (cmd Command, ok bool) {
	return defaultRegistry.Parse(input)
}

// Parse parses input against r.
func (r *Registry) Parse(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !IsCommand(input) {
		return Command{}, false
	}

	name := ExtractCommandName(input)
	cmd := Command{
		Kind:    KindUnknown,
		Name:    name,
		RawArgs: strings.TrimSpace(input[len(name):]),
	}
	cmd.Args = splitCommandLine(cmd.RawArgs)

	if spec, found := r.Lookup(name); found {
		cmd.Kind = spec.Kind
	}
	return cmd, true
}

// IsCommand reports whether input is a command line.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), Prefix)
}

// ExtractCommandName returns the first word of a command line, e.g.
// "/agent 2" -> "/agent".
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, Prefix) {
		return ""
	}
	end := strings.IndexFunc(input, unicode.IsSpace)
	if end == -1 {
		return input
	}
	return input[:end]
}

// splitCommandLine splits s into tokens, honoring single and double quotes.
func splitCommandLine(s string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble, inToken bool

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			inToken = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			inToken = true
		case r == '\\' && (inSingle || inDouble) && i+1 < len(runes) &&
			(runes[i+1] == '"' || runes[i+1] == '\'' || runes[i+1] == '\\'):
			current.WriteRune(runes[i+1])
			i++
		case unicode.IsSpace(r) && !inSingle && !inDouble:
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}
