// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat command.
//
// Command: tui
//
// Examples:
//   animus tui                  Full-screen chat with the default agent
//   animus tui --theme light    Force the light palette
//   animus tui --no-markdown    Show replies as plain text

package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/ui/chat"
	"github.com/animusuno/animus-chat/internal/ui/styles"
)

func newTUICommand(opts *globalOptions) *cobra.Command {
	var (
		theme      string
		noMarkdown bool
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp("")
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireValid("tui"); err != nil {
				return err
			}
			if !IsTTY() || !IsStdoutTTY() {
				return &CommandError{Command: "tui", Reason: "requires an interactive terminal (use 'animus chat')", Code: ExitUsageError}
			}

			if theme == "" {
				theme = a.cfg.Display.Theme
			}
			ctx := cmd.Context()
			client := a.newClient()
			if _, err := client.Health(ctx); err != nil {
				return &CommandError{Command: "tui", Reason: "cannot connect to server", Code: ExitCode(err), Err: err}
			}

			display := chat.NewDisplay()
			loop := session.NewLoop(client, display, session.Options{
				DisplayName:   a.cfg.User.DisplayName,
				ShowReasoning: a.cfg.Display.ShowReasoning,
				Vibe:          newVibeLauncher(a, client),
				VibePrompt:    a.cfg.Vibe.Prompt,
				MaxHistory:    a.cfg.History.MaxMessages,
				Logger:        a.logger,
			})

			startup := []string{"/agents"}
			if id := a.cfg.Agent.DefaultID; id != "" {
				startup = append(startup, "/agent "+id)
			}
			startup = append(startup, "/status")

			model := chat.New(loop, display, chat.Options{
				Theme:    styles.NewTheme(theme),
				Markdown: a.cfg.Display.Markdown && !noMarkdown,
				Startup:  startup,
				Context:  ctx,
				Logger:   a.logger,
			})

			a.logger.Info("starting tui", "server", client.BaseURL(), "agent", client.AgentID())
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
			if _, err := p.Run(); err != nil {
				return NewCommandError("tui", "interface failed", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "Color theme: auto, dark or light")
	cmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "Render replies as plain text")
	return cmd
}
