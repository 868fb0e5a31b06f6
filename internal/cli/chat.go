// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command.
//
// Command: chat (also the default when no command is given)
//
// Examples:
//   animus                      Start chatting with the default agent
//   animus chat --agent ID      Talk to a specific agent
//   animus -r                   Show agent reasoning inline
//
// Interactive Commands (during chat):
//   /help                 Show available commands
//   /agents               List agents
//   /agent <number|id>    Switch agent
//   /reasoning [on|off]   Toggle reasoning display
//   /quit                 Exit chat
//   Ctrl+C                Cancel the reply in progress (exit at the prompt)
//   Ctrl+D                Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/animusuno/animus-chat/internal/commands"
	"github.com/animusuno/animus-chat/internal/config"
	"github.com/animusuno/animus-chat/internal/session"
)

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor provides input history and line editing for interactive chat.
type lineEditor struct {
	line        *liner.State
	historyFile string
	logger      *slog.Logger
}

func newLineEditor(historyFile string, complete func(string) []string, logger *slog.Logger) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}

	e := &lineEditor{line: line, historyFile: historyFile, logger: logger}
	e.loadHistory()
	return e
}

func (e *lineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		if _, err := e.line.ReadHistory(f); err != nil {
			e.logger.Debug("failed to read input history", "error", err)
		}
		f.Close()
	}
}

// readInput reads a line with the given prompt.
func (e *lineEditor) readInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory persists input history with owner-only permissions.
func (e *lineEditor) saveHistory() {
	if e.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		e.logger.Debug("failed to save input history", "error", err)
		return
	}
	defer f.Close()
	if _, err := e.line.WriteHistory(f); err != nil {
		e.logger.Debug("failed to save input history", "error", err)
	}
}

func (e *lineEditor) close() {
	e.saveHistory()
	e.line.Close()
}

// =============================================================================
// TURN CANCELLATION
// =============================================================================

// turnCanceler cancels the turn in flight when SIGINT arrives.
type turnCanceler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (t *turnCanceler) begin(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	return ctx, func() {
		t.mu.Lock()
		t.cancel = nil
		t.mu.Unlock()
		cancel()
	}
}

// interrupt cancels the current turn and reports whether one was running.
func (t *turnCanceler) interrupt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return false
	}
	t.cancel()
	t.cancel = nil
	return true
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(cmd *cobra.Command, opts *globalOptions) error {
	a, err := opts.newApp("")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	display := NewTerminalDisplay(out)

	printBanner(display)

	if err := a.cfg.Validate(); err != nil {
		display.WriteStyled(session.LineError, "Configuration validation failed: "+err.Error())
		if !CanPrompt() {
			return configError("chat", err)
		}
		p := newPrompter(os.Stdin, out)
		if ok, _ := p.confirm("Run setup now?", true); !ok {
			return configError("chat", err)
		}
		if err := runSetupWizard(ctx, p, a.cfg, setupEnvPath(opts), a.logger); err != nil {
			return err
		}
		if err := a.requireValid("chat"); err != nil {
			return err
		}
	}

	client := a.newClient()

	display.WriteLine("Testing connection to Letta server...")
	if _, err := client.Health(ctx); err != nil {
		display.WriteStyled(session.LineError, "Connection failed!")
		return &CommandError{Command: "chat", Reason: "cannot connect to server", Code: ExitCode(err), Err: err}
	}
	display.WriteStyled(session.LineSuccess, "Connected successfully!")
	display.WriteLine("")
	a.logger.Info("connected", "server", client.BaseURL())

	loop := session.NewLoop(client, display, session.Options{
		DisplayName:   a.cfg.User.DisplayName,
		ShowReasoning: a.cfg.Display.ShowReasoning,
		Vibe:          newVibeLauncher(a, client),
		VibePrompt:    a.cfg.Vibe.Prompt,
		MaxHistory:    a.cfg.History.MaxMessages,
		Logger:        a.logger,
	})

	loop.RunTurn(ctx, "/agents")
	if id := a.cfg.Agent.DefaultID; id != "" {
		loop.RunTurn(ctx, "/agent "+id)
	}
	display.WriteLine("")
	loop.RunTurn(ctx, "/status")
	display.WriteLine("")
	loop.RunTurn(ctx, "/help")

	return chatREPL(ctx, loop, display, a)
}

// chatREPL reads input until /quit, Ctrl+C at the prompt, or EOF.
func chatREPL(ctx context.Context, loop *session.Loop, display *TerminalDisplay, a *app) error {
	completer := commands.NewCompleter(commands.Default())
	completer.AgentsFn = func() []string {
		var ids []string
		for _, ag := range loop.Agents() {
			ids = append(ids, ag.ID)
		}
		return ids
	}

	editor := newLineEditor(a.cfg.History.File, completer.Complete, a.logger)
	defer editor.close()

	turns := &turnCanceler{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if turns.interrupt() {
				a.logger.Debug("turn interrupted by user")
			}
		}
	}()

	prompt := fmt.Sprintf("[%s] ", loop.DisplayName())
	for {
		display.WriteLine("")
		input, err := editor.readInput(prompt)
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				a.logger.Warn("input error", "error", err)
			}
			display.WriteLine("")
			display.WriteLine("Goodbye!")
			return nil
		}

		turnCtx, done := turns.begin(ctx)
		res := loop.RunTurn(turnCtx, input)
		done()

		if res.Outcome == session.OutcomeQuit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
