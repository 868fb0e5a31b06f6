// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/animusuno/animus-chat/internal/commands"
	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/model"
	"github.com/animusuno/animus-chat/internal/stream"
	"github.com/animusuno/animus-chat/internal/util"
	"github.com/animusuno/animus-chat/internal/vibe"
)

// DefaultAgentName is shown when the agent's name cannot be looked up.
const DefaultAgentName = "Assistant"

// =============================================================================
// COLLABORATORS
// =============================================================================

// Transport streams an agent's reply to one message.
type Transport interface {
	SendMessageStream(ctx context.Context, text string, showReasoning bool) iter.Seq2[stream.Fragment, error]
}

// Directory lists and selects agents.
type Directory interface {
	ListAgents(ctx context.Context) ([]letta.Agent, error)
	GetAgent(ctx context.Context, id string) (*letta.Agent, error)
	SelectAgent(id string) error
	AgentID() string
	BaseURL() string
}

// Client is everything the loop needs from the server. *letta.Client
// satisfies it.
type Client interface {
	Transport
	Directory
}

// VibeController starts and stops the background vibe runner.
type VibeController interface {
	Start(ctx context.Context) (bool, error)
	Stop() error
	Status() (vibe.Status, error)
}

// LineKind classifies a status line written by a command handler.
type LineKind int

const (
	LineInfo LineKind = iota
	LineHeader
	LineSuccess
	LineError
)

// StyledWriter is implemented by displays that style command output.
// Displays without it receive plain lines.
type StyledWriter interface {
	WriteStyled(kind LineKind, text string) error
}

// =============================================================================
// RESULTS
// =============================================================================

// Outcome says how a turn ended.
type Outcome int

const (
	// OutcomeIgnored is an empty input.
	OutcomeIgnored Outcome = iota
	// OutcomeCommand is a handled local command.
	OutcomeCommand
	// OutcomeReply is a completed chat turn.
	OutcomeReply
	// OutcomeFailed is a chat turn aborted by a transport failure.
	OutcomeFailed
	// OutcomeQuit asks the caller to end the session.
	OutcomeQuit
)

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCommand:
		return "command"
	case OutcomeReply:
		return "reply"
	case OutcomeFailed:
		return "failed"
	case OutcomeQuit:
		return "quit"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the result of one turn.
type Result struct {
	Outcome Outcome

	// Reply is the visible reply of a chat turn, including rendered
	// reasoning lines when reasoning is shown.
	Reply string

	// Reasoning is the reasoning text of a chat turn when it was shown.
	Reasoning string

	// Err is set for failed turns and failed commands.
	Err error
}

// =============================================================================
// LOOP
// =============================================================================

// Options configures a Loop.
type Options struct {
	// DisplayName is the user's name in the history.
	DisplayName string

	// ShowReasoning is the initial reasoning visibility.
	ShowReasoning bool

	// Vibe controls background vibe mode. Nil disables /vibe.
	Vibe VibeController

	// VibePrompt is sent once when /vibe start is used.
	VibePrompt string

	// MaxHistory caps the conversation history. Zero uses the default.
	MaxHistory int

	// Registry overrides the command set.
	Registry *commands.Registry

	Logger *slog.Logger
}

// Loop runs turns for one chat session.
type Loop struct {
	client   Client
	display  stream.Display
	registry *commands.Registry
	logger   *slog.Logger

	displayName string
	vibe        VibeController
	vibePrompt  string

	mu            sync.Mutex
	showReasoning bool
	agentName     string
	agentNameID   string
	agents        []letta.Agent
	history       *model.Conversation
}

// NewLoop creates a loop that talks to client and writes to display.
func NewLoop(client Client, display stream.Display, opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := opts.Registry
	if registry == nil {
		registry = commands.Default()
	}
	history := model.NewConversation()
	if opts.MaxHistory > 0 {
		history.SetMaxMessages(opts.MaxHistory)
	}

	return &Loop{
		client:        client,
		display:       display,
		registry:      registry,
		logger:        logger,
		displayName:   opts.DisplayName,
		vibe:          opts.Vibe,
		vibePrompt:    opts.VibePrompt,
		showReasoning: opts.ShowReasoning,
		history:       history,
	}
}

// RunTurn handles one line of user input.
func (l *Loop) RunTurn(ctx context.Context, input string) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{Outcome: OutcomeIgnored}
	}
	if cmd, ok := l.registry.Parse(input); ok {
		return l.handleCommand(ctx, cmd)
	}
	return l.chat(ctx, input)
}

// chat sends text to the agent and renders the reply as it streams in.
func (l *Loop) chat(ctx context.Context, text string) Result {
	showReasoning := l.ShowReasoning()
	speaker := l.speaker(ctx)
	renderer := stream.NewRenderer(l.display, showReasoning)

	l.logger.Debug("sending message", "agent", l.client.AgentID(), "chars", len(text), "reasoning", showReasoning)

	var (
		reply     strings.Builder
		reasoning strings.Builder
		turnErr   error
	)

	if err := renderer.Begin(speaker); err != nil {
		turnErr = err
	}

	if turnErr == nil {
		for ev, err := range stream.Demux(l.client.SendMessageStream(ctx, text, showReasoning)) {
			if err != nil {
				turnErr = &TransportError{Err: err}
				break
			}
			ev.Text = util.SanitizeText(util.UnescapeNewlines(ev.Text))

			if ev.Kind == stream.EventReasoning {
				if !showReasoning {
					continue
				}
				reasoning.WriteString(ev.Text)
				if reply.Len() > 0 && !strings.HasSuffix(reply.String(), "\n") {
					reply.WriteString("\n")
				}
				reply.WriteString(stream.ReasoningLabel + " " + ev.Text + "\n")
			} else {
				reply.WriteString(ev.Text)
			}

			if err := renderer.Render(ev); err != nil {
				turnErr = err
				break
			}
		}
	}

	if err := renderer.Finish(); err != nil && turnErr == nil {
		turnErr = err
	}

	l.mu.Lock()
	l.history.AddUserMessage(l.displayName, text)
	if turnErr != nil {
		l.history.AddFailure(errorText(turnErr))
	} else {
		l.history.AddAgentMessage(speaker, reply.String(), reasoning.String())
	}
	l.mu.Unlock()

	if turnErr != nil {
		l.logger.Warn("turn failed", "error", turnErr)
		l.reportError(turnErr)
		return Result{Outcome: OutcomeFailed, Reply: reply.String(), Reasoning: reasoning.String(), Err: turnErr}
	}

	l.logger.Debug("turn complete", "reply_chars", reply.Len(), "reasoning_chars", reasoning.Len())
	return Result{Outcome: OutcomeReply, Reply: reply.String(), Reasoning: reasoning.String()}
}

// speaker returns the current agent's name, looking it up on first use
// after a selection.
func (l *Loop) speaker(ctx context.Context) string {
	id := l.client.AgentID()
	if id == "" {
		return DefaultAgentName
	}

	l.mu.Lock()
	if l.agentNameID == id && l.agentName != "" {
		name := l.agentName
		l.mu.Unlock()
		return name
	}
	cached, ok := letta.FindAgent(l.agents, id)
	l.mu.Unlock()

	name := DefaultAgentName
	if ok {
		name = cached.DisplayName()
	} else if agent, err := l.client.GetAgent(ctx, id); err == nil {
		name = agent.DisplayName()
	} else {
		l.logger.Debug("agent name lookup failed", "agent", id, "error", err)
		return name
	}

	l.setAgentName(id, name)
	return name
}

func (l *Loop) setAgentName(id, name string) {
	l.mu.Lock()
	l.agentNameID = id
	l.agentName = name
	l.mu.Unlock()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ShowReasoning reports whether reasoning is displayed.
func (l *Loop) ShowReasoning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.showReasoning
}

// SetShowReasoning changes reasoning visibility for the following turns.
func (l *Loop) SetShowReasoning(show bool) {
	l.mu.Lock()
	l.showReasoning = show
	l.mu.Unlock()
}

// AgentName returns the selected agent's name, or "" when none is known.
func (l *Loop) AgentName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.agentNameID != l.client.AgentID() {
		return ""
	}
	return l.agentName
}

// DisplayName returns the user's display name.
func (l *Loop) DisplayName() string {
	return l.displayName
}

// History returns a copy of the conversation messages.
func (l *Loop) History() []*model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.Message, len(l.history.Messages))
	copy(out, l.history.Messages)
	return out
}

// Agents returns the agents from the last listing.
func (l *Loop) Agents() []letta.Agent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]letta.Agent(nil), l.agents...)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (l *Loop) say(kind LineKind, format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	var err error
	if s, ok := l.display.(StyledWriter); ok {
		err = s.WriteStyled(kind, text)
	} else {
		err = l.display.WriteLine(text)
	}
	if err != nil {
		l.logger.Debug("display write failed", "error", err)
	}
}

func (l *Loop) reportError(err error) {
	if errors.Is(err, context.Canceled) {
		l.say(LineError, "Interrupted.")
		return
	}
	l.say(LineError, "Error: %s", errorText(err))
}

// errorText turns known failures into short user-facing text.
func errorText(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.Is(err, letta.ErrNoAgent):
		return "no agent selected. Use /agents, then /agent <number|id>."
	case errors.Is(err, letta.ErrAuthFailed):
		return "authentication failed. Check LETTA_API_TOKEN."
	case errors.Is(err, letta.ErrAgentNotFound):
		return "agent not found. Use /agents to see available agents."
	case errors.Is(err, letta.ErrRateLimited):
		return "rate limited by the server. Try again shortly."
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Err.Error()
	}
	return err.Error()
}
