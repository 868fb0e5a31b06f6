// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package letta

import (
	"fmt"
	"strconv"
	"strings"
)

// ResolveAgent interprets a user's agent choice against a listed directory.
//
// A number selects the agent at that 1-based position. Anything else is an
// agent ID; known reports whether it appeared in agents. An unknown ID is
// still returned so callers can select agents that were not listed.
func ResolveAgent(choice string, agents []Agent) (agent Agent, known bool, err error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return Agent{}, false, ErrNoAgent
	}

	if n, convErr := strconv.Atoi(choice); convErr == nil {
		if n < 1 || n > len(agents) {
			return Agent{}, false, fmt.Errorf("%w: %d (have %d agents)", ErrInvalidChoice, n, len(agents))
		}
		return agents[n-1], true, nil
	}

	if a, ok := FindAgent(agents, choice); ok {
		return a, true, nil
	}
	return Agent{ID: choice}, false, nil
}

// FindAgent looks an agent up by ID.
func FindAgent(agents []Agent, id string) (Agent, bool) {
	for _, a := range agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}
