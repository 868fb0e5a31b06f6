// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// agents.go - Agent listing command.
//
// Command: agents
//
// Examples:
//   animus agents          Numbered list; the default agent is marked with *
//   animus agents --json   Machine-readable listing

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/letta"
)

func newAgentsCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"ls"},
		Short:   "List the agents on the server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp("")
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireValid("agents"); err != nil {
				return err
			}

			client := a.newClient()
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return NewCommandError("agents", "failed to list agents", err)
			}
			a.logger.Debug("agents listed", "count", len(agents))

			if asJSON {
				return writeAgentsJSON(cmd.OutOrStdout(), agents)
			}
			writeAgents(cmd.OutOrStdout(), agents, client.AgentID())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	return cmd
}

func writeAgents(w io.Writer, agents []letta.Agent, current string) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents found")
		return
	}
	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf("Found %d agents:", len(agents))))
	for i, ag := range agents {
		mark := " "
		name := ag.DisplayName()
		if ag.ID == current {
			mark = "*"
			name = AgentStyle.Render(name)
		}
		fmt.Fprintf(w, "%s %d. %s (ID: %s)\n", mark, i+1, name, ag.ID)
		if ag.Description != "" {
			fmt.Fprintf(w, "      %s\n", DimStyle.Render(ag.Description))
		}
		if ag.LLMConfig.Model != "" {
			fmt.Fprintf(w, "      model: %s\n", ag.LLMConfig.Model)
		}
	}
}

func writeAgentsJSON(w io.Writer, agents []letta.Agent) error {
	if agents == nil {
		agents = []letta.Agent{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(agents)
}
