// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMMAND KINDS
// =============================================================================

// Kind identifies a local command.
type Kind int

const (
	KindUnknown Kind = iota
	KindHelp
	KindStatus
	KindListAgents
	KindSelectAgent
	KindClear
	KindReasoning
	KindHistory
	KindVibe
	KindQuit
)

// String returns the canonical command name for k.
func (k Kind) String() string {
	if spec, ok := defaultRegistry.byKind[k]; ok {
		return spec.Name
	}
	return "unknown"
}

// =============================================================================
// COMMAND SPECS
// =============================================================================

// Spec describes a command for parsing, help and completion.
type Spec struct {
	Kind Kind

	// Name is the primary name, including the "/" prefix.
	Name string

	// Aliases are alternative names.
	Aliases []string

	// Usage shows the argument syntax.
	Usage string

	// Description is shown in help.
	Description string

	// Values lists the accepted first arguments, for completion.
	Values []string
}

// Registry maps command names and aliases to specs.
type Registry struct {
	specs  []Spec
	byName map[string]Spec
	byKind map[Kind]Spec
}

// NewRegistry creates a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]Spec),
		byKind: make(map[Kind]Spec),
	}
	for _, s := range builtins {
		r.Register(s)
	}
	return r
}

// Register adds a command. Later registrations win on name clashes.
func (r *Registry) Register(s Spec) {
	r.specs = append(r.specs, s)
	r.byKind[s.Kind] = s
	r.byName[strings.ToLower(s.Name)] = s
	for _, a := range s.Aliases {
		r.byName[strings.ToLower(a)] = s
	}
}

// Lookup finds a command by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.byName[strings.ToLower(name)]
	return s, ok
}

// Spec returns the spec for a kind.
func (r *Registry) Spec(k Kind) (Spec, bool) {
	s, ok := r.byKind[k]
	return s, ok
}

// All returns the commands in registration order.
func (r *Registry) All() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Names returns every name and alias, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var builtins = []Spec{
	{Kind: KindHelp, Name: "/help", Aliases: []string{"/h", "/?"}, Usage: "/help", Description: "Show this help message"},
	{Kind: KindStatus, Name: "/status", Usage: "/status", Description: "Show connection status"},
	{Kind: KindListAgents, Name: "/agents", Aliases: []string{"/list"}, Usage: "/agents", Description: "List available agents"},
	{Kind: KindSelectAgent, Name: "/agent", Aliases: []string{"/select"}, Usage: "/agent <number|id>", Description: "Switch to a different agent"},
	{Kind: KindClear, Name: "/clear", Aliases: []string{"/cls"}, Usage: "/clear", Description: "Clear the screen"},
	{Kind: KindReasoning, Name: "/reasoning", Aliases: []string{"/think"}, Usage: "/reasoning [on|off]", Description: "Toggle display of agent reasoning", Values: []string{"on", "off"}},
	{Kind: KindHistory, Name: "/history", Usage: "/history", Description: "Show this session's messages"},
	{Kind: KindVibe, Name: "/vibe", Usage: "/vibe <start|stop|status>", Description: "Control autonomous vibe mode", Values: []string{"start", "stop", "status"}},
	{Kind: KindQuit, Name: "/quit", Aliases: []string{"/exit", "/q"}, Usage: "/quit", Description: "Exit the chat"},
}

var defaultRegistry = NewRegistry()

// Default returns the built-in registry.
func Default() *Registry {
	return defaultRegistry
}
