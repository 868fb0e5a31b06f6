// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// Completer completes partially typed command lines.
type Completer struct {
	registry *Registry

	// AgentsFn returns agent IDs for completing "/agent". Optional.
	AgentsFn func() []string
}

// NewCompleter creates a completer over registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns full-line candidates for line. It is shaped to plug into
// a line editor's completion hook.
func (c *Completer) Complete(line string) []string {
	if !IsCommand(line) {
		return nil
	}
	trimmed := strings.TrimLeft(line, " \t")

	name := ExtractCommandName(trimmed)
	if len(name) == len(trimmed) {
		return c.completeNames(name)
	}

	spec, ok := c.registry.Lookup(name)
	if !ok {
		return nil
	}
	partial := strings.TrimLeft(trimmed[len(name):], " \t")
	if strings.ContainsAny(partial, " \t") {
		return nil
	}

	values := spec.Values
	if spec.Kind == KindSelectAgent && c.AgentsFn != nil {
		values = c.AgentsFn()
	}

	var out []string
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(partial)) {
			out = append(out, spec.Name+" "+v)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Completer) completeNames(partial string) []string {
	partial = strings.ToLower(partial)
	var out []string
	for _, s := range c.registry.All() {
		if strings.HasPrefix(s.Name, partial) {
			out = append(out, s.Name)
		}
	}
	if len(out) == 0 {
		// Fall back to aliases ("/q" -> "/quit").
		for _, n := range c.registry.Names() {
			if strings.HasPrefix(n, partial) {
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}
