// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Interactive configuration wizard.
//
// Command: setup
//
// The wizard walks through:
//   1. Letta server URL
//   2. API token (hidden input on a terminal)
//   3. Connection test
//   4. Display name
//   5. Default agent, by number or ID
//   6. Saving to ~/.animus/.env

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/animusuno/animus-chat/internal/config"
	"github.com/animusuno/animus-chat/internal/letta"
)

func newSetupCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "setup",
		Aliases: []string{"init"},
		Short:   "Configure the server, token and default agent",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp("")
			if err != nil {
				return err
			}
			defer a.close()

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			return runSetupWizard(cmd.Context(), p, a.cfg, setupEnvPath(opts), a.logger)
		},
	}
}

// setupEnvPath returns the .env file setup writes to: the first --env-file,
// or ~/.animus/.env.
func setupEnvPath(opts *globalOptions) string {
	if len(opts.envFiles) > 0 {
		return opts.envFiles[0]
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ".env"
	}
	return filepath.Join(dir, ".env")
}

// =============================================================================
// PROMPTS
// =============================================================================

// errSetupCancelled is returned when the user declines to continue.
var errSetupCancelled = errors.New("setup cancelled")

// prompter reads answers line by line. Secrets are read without echo when
// the input is a terminal.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prompts for a value, returning def on an empty answer. A required
// prompt repeats until it gets a value.
func (p *prompter) ask(label, def string, required bool) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(p.out, "%s: ", label)
		}
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = def
		}
		if answer != "" || !required {
			return answer, nil
		}
		fmt.Fprintln(p.out, "This field is required. Please enter a value.")
	}
}

// askSecret prompts for a hidden value. keep is returned on an empty answer.
func (p *prompter) askSecret(label, keep string) (string, error) {
	for {
		if keep != "" {
			fmt.Fprintf(p.out, "%s [press Enter to keep current]: ", label)
		} else {
			fmt.Fprintf(p.out, "%s: ", label)
		}

		var answer string
		var err error
		if p.secret != nil {
			answer, err = p.secret()
			answer = strings.TrimSpace(answer)
		} else {
			answer, err = p.readLine()
		}
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = keep
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "This field is required. Please enter a value.")
	}
}

// confirm asks a yes/no question.
func (p *prompter) confirm(label string, defYes bool) (bool, error) {
	suffix := "[Y/n]"
	if !defYes {
		suffix = "[y/N]"
	}
	fmt.Fprintf(p.out, "%s %s: ", label, suffix)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return defYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// =============================================================================
// WIZARD
// =============================================================================

// connectFunc builds a client for the wizard's connection test.
var connectFunc = func(cfg *config.Config, logger *slog.Logger) setupClient {
	return newClient(cfg, logger)
}

// setupClient is the part of the Letta client the wizard uses.
type setupClient interface {
	Health(ctx context.Context) (*letta.HealthStatus, error)
	ListAgents(ctx context.Context) ([]letta.Agent, error)
}

// runSetupWizard asks for the settings, tests them and saves them to envPath.
// cfg is updated in place.
func runSetupWizard(ctx context.Context, p *prompter, cfg *config.Config, envPath string, logger *slog.Logger) error {
	out := p.out
	fmt.Fprintln(out)
	fmt.Fprintln(out, SectionStyle.Render("Animus Chat - Interactive Setup"))
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintln(out, "This will help you configure your Letta chat client.")
	fmt.Fprintln(out)

	var client setupClient
	for {
		fmt.Fprintln(out, "1. Letta Server Configuration")
		defURL := cfg.Server.URL
		if defURL == config.PlaceholderServerURL {
			defURL = ""
		}
		serverURL, err := p.ask("Enter your Letta server URL", defURL, true)
		if err != nil {
			return err
		}
		cfg.Server.URL = strings.TrimRight(serverURL, "/")

		fmt.Fprintln(out)
		fmt.Fprintln(out, "2. Authentication")
		token, err := p.askSecret("Enter your API token", cfg.Server.Token)
		if err != nil {
			return err
		}
		cfg.Server.Token = token

		fmt.Fprintln(out)
		fmt.Fprintln(out, "3. Testing Connection")
		fmt.Fprintln(out, "Testing connection to Letta server...")
		client = connectFunc(cfg, logger)
		if _, err := client.Health(ctx); err != nil {
			fmt.Fprintln(out, ErrorStyle.Render("[ERROR]"), "Connection failed:", err)
			retry, rerr := p.confirm("Do you want to try again?", true)
			if rerr != nil {
				return rerr
			}
			if retry {
				fmt.Fprintln(out)
				continue
			}
			fmt.Fprintln(out, "Setup cancelled.")
			return errSetupCancelled
		}
		fmt.Fprintln(out, SuccessStyle.Render("[OK]"), "Connection successful!")
		break
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "4. User Configuration")
	name, err := p.ask("Enter your display name", cfg.User.DisplayName, true)
	if err != nil {
		return err
	}
	cfg.User.DisplayName = name

	fmt.Fprintln(out)
	fmt.Fprintln(out, "5. Agent Selection")
	if err := chooseDefaultAgent(ctx, p, client, cfg); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "6. Saving Configuration")
	if err := config.SaveEnv(envPath, cfg.EnvValues()); err != nil {
		return NewCommandError("setup", "failed to save configuration", err)
	}
	logger.Info("configuration saved", "path", envPath)

	fmt.Fprintln(out, SuccessStyle.Render("[OK]"), "Configuration saved to", envPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete! Start chatting with:")
	fmt.Fprintln(out, "  animus")
	return nil
}

func chooseDefaultAgent(ctx context.Context, p *prompter, client setupClient, cfg *config.Config) error {
	out := p.out
	fmt.Fprintln(out, "Fetching available agents...")
	agents, err := client.ListAgents(ctx)
	if err != nil {
		fmt.Fprintln(out, "Error fetching agents:", err)
	}
	if len(agents) == 0 {
		fmt.Fprintln(out, "No agents found. You can set an agent later.")
		return nil
	}

	fmt.Fprintf(out, "Found %d available agents:\n", len(agents))
	for i, ag := range agents {
		fmt.Fprintf(out, "  %d. %s (ID: %s)\n", i+1, ag.DisplayName(), ag.ID)
		if ag.Description != "" {
			fmt.Fprintf(out, "      %s\n", ag.Description)
		}
	}
	fmt.Fprintln(out)

	for {
		choice, err := p.ask("Select default agent (number or ID, or press Enter to skip)", "", false)
		if err != nil {
			return err
		}
		if choice == "" {
			return nil
		}

		agent, known, err := letta.ResolveAgent(choice, agents)
		switch {
		case errors.Is(err, letta.ErrInvalidChoice):
			fmt.Fprintf(out, "Please enter a number between 1 and %d\n", len(agents))
		case err != nil:
			return err
		case !known:
			fmt.Fprintf(out, "Agent ID '%s' not found. Please try again.\n", choice)
		default:
			cfg.Agent.DefaultID = agent.ID
			fmt.Fprintf(out, "Selected: %s\n", agent.DisplayName())
			return nil
		}
	}
}
