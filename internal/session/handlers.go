// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/animusuno/animus-chat/internal/commands"
	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/stream"
)

const (
	historyShown   = 20
	historyPreview = 100
)

// handleCommand dispatches a parsed slash command.
func (l *Loop) handleCommand(ctx context.Context, cmd commands.Command) Result {
	l.logger.Debug("command", "name", cmd.Name, "kind", cmd.Kind.String(), "args", len(cmd.Args))

	var err error
	switch cmd.Kind {
	case commands.KindHelp:
		l.printHelp()
	case commands.KindStatus:
		l.printStatus(ctx)
	case commands.KindListAgents:
		err = l.listAgents(ctx)
	case commands.KindSelectAgent:
		err = l.selectAgentCommand(ctx, cmd)
	case commands.KindClear:
		err = l.clear()
	case commands.KindReasoning:
		err = l.toggleReasoning(cmd)
	case commands.KindHistory:
		l.printHistory()
	case commands.KindVibe:
		return l.vibeCommand(ctx, cmd)
	case commands.KindQuit:
		l.say(LineInfo, "Goodbye!")
		return Result{Outcome: OutcomeQuit}
	default:
		l.say(LineError, "Unknown command: %s", cmd.Name)
		l.say(LineInfo, "Type /help for available commands.")
		err = fmt.Errorf("%w: %s", commands.ErrUnknownCommand, cmd.Name)
	}
	return Result{Outcome: OutcomeCommand, Err: err}
}

// =============================================================================
// HELP & STATUS
// =============================================================================

func (l *Loop) printHelp() {
	l.say(LineHeader, "Commands:")
	for _, spec := range l.registry.All() {
		l.say(LineInfo, "  %-26s %s", spec.Usage, spec.Description)
	}
	l.say(LineInfo, "")
	l.say(LineInfo, "Note: Use /agent 5 to select agent #5 from the /agents list")
	l.say(LineInfo, "Note: Use --reasoning to show reasoning by default")
}

func (l *Loop) printStatus(ctx context.Context) {
	l.say(LineHeader, "Status:")
	l.say(LineInfo, "Server: %s", l.client.BaseURL())
	l.say(LineInfo, "User: %s", l.displayName)

	if id := l.client.AgentID(); id != "" {
		l.say(LineInfo, "Agent: %s (%s)", l.speaker(ctx), id)
	} else {
		l.say(LineInfo, "Agent: None selected")
	}
	l.say(LineInfo, "Reasoning display: %s", onOff(l.ShowReasoning()))

	if l.vibe != nil {
		l.say(LineInfo, "%s", l.vibeStatusLine())
	}
}

// =============================================================================
// AGENTS
// =============================================================================

func (l *Loop) listAgents(ctx context.Context) error {
	l.say(LineInfo, "Fetching available agents...")
	agents, err := l.refreshAgents(ctx)
	if err != nil {
		l.reportError(err)
		return err
	}
	if len(agents) == 0 {
		l.say(LineInfo, "No agents found")
		return nil
	}

	current := l.client.AgentID()
	l.say(LineHeader, "Found %d agents:", len(agents))
	for i, a := range agents {
		mark := " "
		if a.ID == current {
			mark = "*"
		}
		l.say(LineInfo, "%s %d. %s (ID: %s)", mark, i+1, a.DisplayName(), a.ID)
		if a.Description != "" {
			l.say(LineInfo, "      %s", a.Description)
		}
	}
	return nil
}

func (l *Loop) refreshAgents(ctx context.Context) ([]letta.Agent, error) {
	agents, err := l.client.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.agents = agents
	l.mu.Unlock()
	return agents, nil
}

func (l *Loop) selectAgentCommand(ctx context.Context, cmd commands.Command) error {
	if cmd.RawArgs == "" {
		usage := "/agent <number|id>"
		if spec, ok := l.registry.Spec(commands.KindSelectAgent); ok {
			usage = spec.Usage
		}
		l.say(LineInfo, "Usage: %s", usage)
		return nil
	}

	agent, err := l.SelectAgent(ctx, cmd.Arg(0))
	if err != nil {
		if errors.Is(err, letta.ErrInvalidChoice) {
			l.say(LineError, "Invalid agent number: %s. Use /agents to see available agents.", cmd.Arg(0))
		} else {
			l.say(LineError, "Failed to set agent: %s", errorText(err))
		}
		return err
	}
	l.say(LineSuccess, "Set agent: %s (ID: %s)", agent.DisplayName(), agent.ID)
	return nil
}

// SelectAgent makes choice the current agent. A number picks from the last
// listing (fetching one if needed); anything else is an agent ID, which is
// checked against the server when it was not listed.
func (l *Loop) SelectAgent(ctx context.Context, choice string) (letta.Agent, error) {
	agents := l.Agents()
	if len(agents) == 0 && isNumber(choice) {
		var err error
		if agents, err = l.refreshAgents(ctx); err != nil {
			return letta.Agent{}, err
		}
	}

	agent, known, err := letta.ResolveAgent(choice, agents)
	if err != nil {
		return letta.Agent{}, err
	}
	if !known {
		found, err := l.client.GetAgent(ctx, agent.ID)
		if err != nil {
			return letta.Agent{}, err
		}
		agent = *found
	}

	if err := l.client.SelectAgent(agent.ID); err != nil {
		return letta.Agent{}, err
	}
	l.setAgentName(agent.ID, agent.DisplayName())
	l.logger.Info("agent selected", "agent", agent.ID, "name", agent.DisplayName())
	return agent, nil
}

func isNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// DISPLAY COMMANDS
// =============================================================================

// clear wipes the display and starts a fresh history.
func (l *Loop) clear() error {
	l.mu.Lock()
	l.history.Clear()
	l.mu.Unlock()

	if c, ok := l.display.(stream.Clearer); ok {
		return c.Clear()
	}
	return nil
}

func (l *Loop) toggleReasoning(cmd commands.Command) error {
	show := !l.ShowReasoning()
	switch strings.ToLower(cmd.Arg(0)) {
	case "":
	case "on", "true", "1":
		show = true
	case "off", "false", "0":
		show = false
	default:
		l.say(LineInfo, "Usage: /reasoning [on|off]")
		return nil
	}
	l.SetShowReasoning(show)
	l.say(LineSuccess, "Reasoning display: %s", onOff(show))
	return nil
}

func (l *Loop) printHistory() {
	msgs := l.History()
	if len(msgs) == 0 {
		l.say(LineInfo, "No messages yet.")
		return
	}
	if len(msgs) > historyShown {
		msgs = msgs[len(msgs)-historyShown:]
	}
	l.say(LineHeader, "Recent messages:")
	for _, m := range msgs {
		preview := strings.ReplaceAll(m.Preview(historyPreview), "\n", " ")
		l.say(LineInfo, "  %s [%s] %s", m.Timestamp.Format("15:04"), m.DisplaySpeaker(), preview)
	}
}

// =============================================================================
// VIBE MODE
// =============================================================================

func (l *Loop) vibeCommand(ctx context.Context, cmd commands.Command) Result {
	if l.vibe == nil {
		l.say(LineError, "Vibe mode is not available.")
		return Result{Outcome: OutcomeCommand}
	}

	switch strings.ToLower(cmd.Arg(0)) {
	case "", "start":
	case "stop":
		if err := l.vibe.Stop(); err != nil {
			l.reportError(err)
			return Result{Outcome: OutcomeCommand, Err: err}
		}
		l.say(LineSuccess, "Vibe mode stopping...")
		return Result{Outcome: OutcomeCommand}
	case "status":
		l.say(LineInfo, "%s", l.vibeStatusLine())
		return Result{Outcome: OutcomeCommand}
	default:
		l.say(LineInfo, "Usage: /vibe <start|stop|status>")
		return Result{Outcome: OutcomeCommand}
	}

	started, err := l.vibe.Start(ctx)
	if err != nil {
		l.say(LineError, "Failed to start vibe mode: %s", errorText(err))
		return Result{Outcome: OutcomeCommand, Err: err}
	}
	if started {
		l.say(LineSuccess, "Entering vibe mode (autonomous)")
	} else {
		l.say(LineInfo, "Vibe mode already running")
	}

	if strings.TrimSpace(l.vibePrompt) == "" {
		return Result{Outcome: OutcomeCommand}
	}
	// Run the prompt once in the foreground so its reply is visible here.
	return l.chat(ctx, l.vibePrompt)
}

func (l *Loop) vibeStatusLine() string {
	st, err := l.vibe.Status()
	if err != nil {
		return "Vibe status: " + errorText(err)
	}
	if !st.Running() {
		return "Vibe status: not running"
	}
	lastRun := st.LastRun
	if lastRun == "" {
		lastRun = "-"
	}
	return fmt.Sprintf("Vibe status: %s pid=%d last_run=%s runs=%d", st.Status, st.PID, lastRun, st.Runs)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
