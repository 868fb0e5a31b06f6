// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask [question]
//
// Examples:
//   animus ask "What did we talk about yesterday?"
//   echo "Summarize your memory" | animus ask
//   animus ask --agent agent-123 "Hello"

package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/util"
)

func newAskCommand(opts *globalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Send one message and print the reply",
		Long: `Send a single message to the agent and print its reply.

The question is taken from the arguments, or from stdin when it is piped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" && !isTerminalFile(cmd.InOrStdin()) {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return NewCommandError("ask", "failed to read stdin", err)
				}
				question = strings.TrimSpace(string(data))
			}
			if question == "" {
				return &CommandError{Command: "ask", Reason: "no question given", Code: ExitUsageError}
			}
			return runAsk(cmd, opts, question, raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply without markdown rendering")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *globalOptions, question string, raw bool) error {
	a, err := opts.newApp("")
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireValid("ask"); err != nil {
		return err
	}

	client := a.newClient()
	a.logger.Debug("ask", "agent", client.AgentID(), "chars", len(question))

	reply, err := client.SendMessage(cmd.Context(), question)
	if err != nil {
		return NewCommandError("ask", "request failed", err)
	}

	reply = util.SanitizeText(util.UnescapeNewlines(reply))
	out := cmd.OutOrStdout()
	if a.cfg.Display.Markdown && !raw && isTerminalFile(out) {
		reply = renderMarkdown(reply, GetTerminalWidth())
	}
	if _, err := io.WriteString(out, reply); err != nil {
		return err
	}
	if !strings.HasSuffix(reply, "\n") {
		_, err = io.WriteString(out, "\n")
	}
	return err
}

// renderMarkdown renders reply for the terminal, returning it unchanged if
// glamour fails.
func renderMarkdown(reply string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return reply
	}
	out, err := r.Render(reply)
	if err != nil {
		return reply
	}
	return out
}
