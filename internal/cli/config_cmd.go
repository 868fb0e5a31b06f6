// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection commands.
//
// Commands:
//   config show   Print the effective configuration (token masked)
//   config path   Print the files configuration is read from

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/config"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), cfg.String())
				if err := cfg.Validate(); err != nil {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Warning:"), err)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := cmd.OutOrStdout()
				tomlPath := opts.configPath
				if tomlPath == "" {
					p, err := config.ConfigPathTOML()
					if err != nil {
						return configError("config path", err)
					}
					tomlPath = p
				}
				fmt.Fprintf(out, "config: %s%s\n", tomlPath, missingMark(tomlPath))

				envFiles := opts.envFiles
				if envFiles == nil {
					envFiles = config.DefaultEnvFiles()
				}
				for _, p := range envFiles {
					fmt.Fprintf(out, "env:    %s%s\n", p, missingMark(p))
				}
				fmt.Fprintf(out, "setup:  %s\n", setupEnvPath(opts))
				return nil
			},
		},
	)
	return cmd
}

func missingMark(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not found)"
	}
	return ""
}
