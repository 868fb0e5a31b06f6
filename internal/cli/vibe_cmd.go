// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// vibe_cmd.go - Autonomous vibe mode commands.
//
// Commands:
//   vibe run      Run the vibe loop in the foreground
//   vibe start    Launch the vibe loop as a background process
//   vibe stop     Ask the running loop to exit
//   vibe status   Show the control file state
//
// The background process is "animus vibe run"; the two sides share the
// control file (default ~/.animus/vibe_control.json).

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/vibe"
)

func newVibeCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe",
		Short: "Send a prompt to the agent on an interval",
		Long: `Vibe mode sends the configured prompt (VIBE_MODE_PROMPT) to the agent
every VIBE_INTERVAL_SECONDS (minimum 10) until stopped.`,
	}
	cmd.AddCommand(
		newVibeRunCommand(opts),
		newVibeStartCommand(opts),
		newVibeStopCommand(opts),
		newVibeStatusCommand(opts),
	)
	return cmd
}

func newVibeRunCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run vibe mode in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := opts.newApp(cfg.Vibe.LogFile)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireValid("vibe run"); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := &vibe.Runner{
				Transport:   a.newClient(),
				Prompt:      a.cfg.Vibe.Prompt,
				Interval:    time.Duration(a.cfg.Vibe.IntervalSeconds) * time.Second,
				ControlFile: a.cfg.Vibe.ControlFile,
				Logger:      a.logger,
			}
			a.logger.Info("starting", "runner", runner.String(), "agent", a.cfg.Agent.DefaultID)
			if err := runner.Run(ctx); err != nil {
				return NewCommandError("vibe run", "runner failed", err)
			}
			return nil
		},
	}
}

func newVibeStartCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start vibe mode in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp("")
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireValid("vibe start"); err != nil {
				return err
			}

			launcher := newVibeLauncher(a, a.newClient())
			started, err := launcher.Start(cmd.Context())
			if err != nil {
				return NewCommandError("vibe start", "failed to start", err)
			}
			out := cmd.OutOrStdout()
			if !started {
				fmt.Fprintln(out, "Vibe mode already running")
				return nil
			}
			fmt.Fprintln(out, SuccessStyle.Render("[OK]"), "Vibe mode started")
			fmt.Fprintf(out, "Log: %s\n", a.cfg.Vibe.LogFile)
			return nil
		},
	}
}

func newVibeStopCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop vibe mode after its current cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := vibe.WriteCommand(cfg.Vibe.ControlFile, vibe.CommandStop); err != nil {
				return NewCommandError("vibe stop", "failed to write control file", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Vibe mode stopping...")
			return nil
		},
	}
}

func newVibeStatusCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vibe mode status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			st, err := vibe.NewController(cfg.Vibe.ControlFile, "").Status()
			if err != nil {
				return NewCommandError("vibe status", "failed to read control file", err)
			}
			writeVibeStatus(cmd, st)
			return nil
		},
	}
}

func writeVibeStatus(cmd *cobra.Command, st vibe.Status) {
	out := cmd.OutOrStdout()
	if !st.Running() {
		fmt.Fprintln(out, "Vibe status: not running")
		if st.LastError != "" {
			fmt.Fprintf(out, "Last error: %s\n", st.LastError)
		}
		return
	}
	fmt.Fprintln(out, SuccessStyle.Render("Vibe status: running"))
	fmt.Fprintf(out, "  pid:      %d\n", st.PID)
	fmt.Fprintf(out, "  run id:   %s\n", st.RunID)
	fmt.Fprintf(out, "  started:  %s\n", st.Timestamp)
	fmt.Fprintf(out, "  last run: %s\n", orDash(st.LastRun))
	fmt.Fprintf(out, "  runs:     %d\n", st.Runs)
	if st.LastError != "" {
		fmt.Fprintf(out, "  error:    %s\n", st.LastError)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// =============================================================================
// LAUNCHER
// =============================================================================

// agentSource reports the currently selected agent.
type agentSource interface {
	AgentID() string
}

// vibeLauncher starts "animus vibe run" for whichever agent is selected at
// the time of the start.
type vibeLauncher struct {
	*vibe.Controller
	opts   *globalOptions
	agents agentSource
}

func newVibeLauncher(a *app, client *letta.Client) session.VibeController {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return &vibeLauncher{
		Controller: vibe.NewController(a.cfg.Vibe.ControlFile, exe),
		opts:       a.opts,
		agents:     client,
	}
}

// Start launches the runner with the current agent and the same
// configuration sources as this process.
func (v *vibeLauncher) Start(ctx context.Context) (bool, error) {
	v.Controller.Args = v.runArgs()
	return v.Controller.Start(ctx)
}

func (v *vibeLauncher) runArgs() []string {
	args := []string{"vibe", "run"}
	if id := v.agents.AgentID(); id != "" {
		args = append(args, "--agent", id)
	}
	if v.opts.configPath != "" {
		args = append(args, "--config", v.opts.configPath)
	}
	for _, f := range v.opts.envFiles {
		args = append(args, "--env-file", f)
	}
	if v.opts.debug {
		args = append(args, "--debug")
	}
	return args
}
