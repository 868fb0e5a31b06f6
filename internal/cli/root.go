// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	verbose    bool
	debug      bool
	reasoning  bool
	configPath string
	envFiles   []string
	agent      string
}

// NewRootCommand builds the animus command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "animus",
		Short: "Terminal chat client for Letta agents",
		Long: `animus talks to agents on a Letta server. Replies stream in as they
are generated; agent reasoning can be shown inline with --reasoning.

Run 'animus setup' once to configure the server and token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Copy logs to stderr")
	pf.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	pf.BoolVarP(&opts.reasoning, "reasoning", "r", false, "Show agent reasoning")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default ~/.animus/config.toml)")
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "Load settings from these .env files instead of the defaults")
	pf.StringVar(&opts.agent, "agent", "", "Agent ID to talk to")

	root.AddCommand(
		newChatCommand(opts),
		newTUICommand(opts),
		newAskCommand(opts),
		newAgentsCommand(opts),
		newSetupCommand(opts),
		newConfigCommand(opts),
		newVibeCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, ErrorStyle.Render("Error:"), err)
		return ExitCode(err)
	}
	return ExitSuccess
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "animus %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
