// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animusuno/animus-chat/internal/commands"
	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/model"
	"github.com/animusuno/animus-chat/internal/stream"
	"github.com/animusuno/animus-chat/internal/vibe"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeClient struct {
	agentID string
	agents  []letta.Agent
	listErr error

	frags []stream.Fragment
	err   error

	sent          []string
	sentReasoning []bool
	getCalls      int
}

func (f *fakeClient) SendMessageStream(_ context.Context, text string, showReasoning bool) iter.Seq2[stream.Fragment, error] {
	f.sent = append(f.sent, text)
	f.sentReasoning = append(f.sentReasoning, showReasoning)
	return func(yield func(stream.Fragment, error) bool) {
		for _, fr := range f.frags {
			if !yield(fr, nil) {
				return
			}
		}
		if f.err != nil {
			yield(stream.Fragment{}, f.err)
		}
	}
}

func (f *fakeClient) ListAgents(context.Context) ([]letta.Agent, error) {
	return f.agents, f.listErr
}

func (f *fakeClient) GetAgent(_ context.Context, id string) (*letta.Agent, error) {
	f.getCalls++
	if a, ok := letta.FindAgent(f.agents, id); ok {
		return &a, nil
	}
	return nil, letta.ErrAgentNotFound
}

func (f *fakeClient) SelectAgent(id string) error {
	f.agentID = id
	return nil
}

func (f *fakeClient) AgentID() string { return f.agentID }
func (f *fakeClient) BaseURL() string { return "https://letta.example.com" }

type recordingDisplay struct {
	out     strings.Builder
	cleared int
}

func (d *recordingDisplay) Write(text string) error {
	d.out.WriteString(text)
	return nil
}

func (d *recordingDisplay) WriteLine(text string) error {
	d.out.WriteString(text + "\n")
	return nil
}

func (d *recordingDisplay) Clear() error {
	d.cleared++
	d.out.Reset()
	return nil
}

func (d *recordingDisplay) String() string { return d.out.String() }

type styledLine struct {
	kind LineKind
	text string
}

type styledDisplay struct {
	recordingDisplay
	lines []styledLine
}

func (d *styledDisplay) WriteStyled(kind LineKind, text string) error {
	d.lines = append(d.lines, styledLine{kind, text})
	return nil
}

type fakeVibe struct {
	running  bool
	starts   int
	stops    int
	startErr error
}

func (v *fakeVibe) Start(context.Context) (bool, error) {
	v.starts++
	if v.startErr != nil {
		return false, v.startErr
	}
	if v.running {
		return false, nil
	}
	v.running = true
	return true, nil
}

func (v *fakeVibe) Stop() error {
	v.stops++
	return nil
}

func (v *fakeVibe) Status() (vibe.Status, error) {
	if !v.running {
		return vibe.Status{}, nil
	}
	return vibe.Status{State: vibe.State{Status: vibe.StatusRunning, PID: 77, Runs: 2}, Alive: true}, nil
}

func texts(ss ...string) []stream.Fragment {
	out := make([]stream.Fragment, len(ss))
	for i, s := range ss {
		out[i] = stream.Fragment{Text: s}
	}
	return out
}

var testAgents = []letta.Agent{
	{ID: "agent-1", Name: "Bot", Description: "The helpful one"},
	{ID: "agent-2", Name: "Beta"},
}

func newTestLoop(client *fakeClient, opts Options) (*Loop, *recordingDisplay) {
	d := &recordingDisplay{}
	if opts.DisplayName == "" {
		opts.DisplayName = "Ana"
	}
	return NewLoop(client, d, opts), d
}

// =============================================================================
// CHAT TURNS
// =============================================================================

func TestRunTurn_EmptyInputIsIgnored(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents}
	loop, d := newTestLoop(client, Options{})

	for _, in := range []string{"", "   ", "\t\n"} {
		res := loop.RunTurn(context.Background(), in)
		assert.Equal(t, OutcomeIgnored, res.Outcome)
	}
	assert.Empty(t, client.sent)
	assert.Empty(t, d.String())
	assert.Empty(t, loop.History())
}

func TestRunTurn_StreamsReply(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		frags:   texts("Hello", " world"),
	}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "  hi there ")
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeReply, res.Outcome)
	assert.Equal(t, "Hello world", res.Reply)
	assert.Equal(t, "[Bot] Hello world\n", d.String())
	assert.Equal(t, []string{"hi there"}, client.sent)

	hist := loop.History()
	require.Len(t, hist, 2)
	assert.Equal(t, model.RoleUser, hist[0].Role)
	assert.Equal(t, "Ana", hist[0].Speaker)
	assert.Equal(t, "hi there", hist[0].Content)
	assert.Equal(t, model.RoleAgent, hist[1].Role)
	assert.Equal(t, "Bot", hist[1].Speaker)
	assert.Equal(t, "Hello world", hist[1].Content)
}

func TestRunTurn_ShowsReasoning(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		frags: []stream.Fragment{
			{Text: stream.Marker + "think"},
			{Text: " more", Continued: true},
			{Text: "answer"},
		},
	}
	loop, d := newTestLoop(client, Options{ShowReasoning: true})

	res := loop.RunTurn(context.Background(), "question")
	require.NoError(t, res.Err)
	assert.Equal(t, []bool{true}, client.sentReasoning)
	assert.Equal(t, "[Bot] \n[Thinking] think more\nanswer\n", d.String())
	assert.Equal(t, "[Thinking] think more\nanswer", res.Reply)
	assert.Equal(t, "think more", res.Reasoning)
	assert.Equal(t, "think more", loop.History()[1].Reasoning)
}

func TestRunTurn_ReasoningMidLineStartsNewLine(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		frags: []stream.Fragment{
			{Text: "hello"},
			{Text: stream.Marker + "think"},
			{Text: "world"},
		},
	}
	loop, d := newTestLoop(client, Options{ShowReasoning: true})

	res := loop.RunTurn(context.Background(), "question")
	require.NoError(t, res.Err)
	assert.Equal(t, "[Bot] hello\n[Thinking] think\nworld\n", d.String())
	assert.Equal(t, "hello\n[Thinking] think\nworld", res.Reply)
	assert.Equal(t, res.Reply, loop.History()[1].Content)
}

func TestRunTurn_HidesReasoning(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		frags: []stream.Fragment{
			{Text: stream.Marker + "secret"},
			{Text: "answer"},
		},
	}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "question")
	require.NoError(t, res.Err)
	assert.Equal(t, []bool{false}, client.sentReasoning)
	assert.Equal(t, "[Bot] answer\n", d.String())
	assert.Equal(t, "answer", res.Reply)
	assert.Empty(t, res.Reasoning)
	assert.NotContains(t, d.String(), "secret")
}

func TestRunTurn_ConvertsEscapedNewlines(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents, frags: texts(`one\ntwo`)}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "lines please")
	assert.Equal(t, "one\ntwo", res.Reply)
	assert.Equal(t, "[Bot] one\ntwo\n", d.String())
}

func TestRunTurn_TransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		frags:   texts("partial"),
		err:     &letta.StreamError{Partial: "partial", Err: boom},
	}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "hello")
	assert.Equal(t, OutcomeFailed, res.Outcome)

	var te *TransportError
	require.ErrorAs(t, res.Err, &te)
	assert.ErrorIs(t, res.Err, boom)

	out := d.String()
	assert.True(t, strings.HasPrefix(out, "[Bot] partial\n"), out)
	assert.Equal(t, 1, strings.Count(out, "Error: "))

	hist := loop.History()
	require.Len(t, hist, 2)
	assert.Equal(t, model.RoleUser, hist[0].Role)
	assert.True(t, hist[1].Failed)

	// The loop keeps working after a failure.
	client.err = nil
	client.frags = texts("fine")
	res = loop.RunTurn(context.Background(), "again")
	assert.Equal(t, OutcomeReply, res.Outcome)
}

func TestRunTurn_Interrupted(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  testAgents,
		err:     &letta.StreamError{Err: context.Canceled},
	}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "hello")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Contains(t, d.String(), "Interrupted.")
	assert.NotContains(t, d.String(), "Error:")
}

func TestRunTurn_NoAgent(t *testing.T) {
	client := &fakeClient{err: letta.ErrNoAgent}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "hello")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, letta.ErrNoAgent)
	assert.Contains(t, d.String(), "[Assistant] ")
	assert.Contains(t, d.String(), "Error: no agent selected")
}

func TestRunTurn_LooksUpAgentNameOnce(t *testing.T) {
	client := &fakeClient{agentID: "agent-2", agents: testAgents, frags: texts("ok")}
	loop, _ := newTestLoop(client, Options{})

	loop.RunTurn(context.Background(), "one")
	loop.RunTurn(context.Background(), "two")
	assert.Equal(t, 1, client.getCalls)
	assert.Equal(t, "Beta", loop.AgentName())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestRunTurn_CommandsNeverReachTransport(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents}
	loop, _ := newTestLoop(client, Options{})

	for _, in := range []string{"/help", "/status", "/agents", "/history", "/reasoning", "/frobnicate"} {
		res := loop.RunTurn(context.Background(), in)
		assert.Equal(t, OutcomeCommand, res.Outcome, in)
	}
	assert.Empty(t, client.sent)
}

func TestRunTurn_UnknownCommand(t *testing.T) {
	loop, d := newTestLoop(&fakeClient{}, Options{})

	res := loop.RunTurn(context.Background(), "/frob now")
	assert.ErrorIs(t, res.Err, commands.ErrUnknownCommand)
	assert.Equal(t, "Unknown command: /frob\nType /help for available commands.\n", d.String())
}

func TestRunTurn_Help(t *testing.T) {
	loop, d := newTestLoop(&fakeClient{}, Options{})

	loop.RunTurn(context.Background(), "/help")
	for _, spec := range commands.Default().All() {
		assert.Contains(t, d.String(), spec.Usage)
	}
}

func TestRunTurn_Status(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents}
	loop, d := newTestLoop(client, Options{Vibe: &fakeVibe{}})

	loop.RunTurn(context.Background(), "/status")
	out := d.String()
	assert.Contains(t, out, "Server: https://letta.example.com")
	assert.Contains(t, out, "User: Ana")
	assert.Contains(t, out, "Agent: Bot (agent-1)")
	assert.Contains(t, out, "Reasoning display: OFF")
	assert.Contains(t, out, "Vibe status: not running")
}

func TestRunTurn_StatusWithoutAgent(t *testing.T) {
	loop, d := newTestLoop(&fakeClient{}, Options{})
	loop.RunTurn(context.Background(), "/status")
	assert.Contains(t, d.String(), "Agent: None selected")
}

func TestRunTurn_ListAgents(t *testing.T) {
	client := &fakeClient{agentID: "agent-2", agents: testAgents}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "/agents")
	require.NoError(t, res.Err)
	out := d.String()
	assert.Contains(t, out, "Found 2 agents:")
	assert.Contains(t, out, "  1. Bot (ID: agent-1)")
	assert.Contains(t, out, "The helpful one")
	assert.Contains(t, out, "* 2. Beta (ID: agent-2)")
	assert.Len(t, loop.Agents(), 2)
}

func TestRunTurn_ListAgentsFailure(t *testing.T) {
	client := &fakeClient{listErr: letta.ErrAuthFailed}
	loop, d := newTestLoop(client, Options{})

	res := loop.RunTurn(context.Background(), "/agents")
	assert.Equal(t, OutcomeCommand, res.Outcome)
	assert.ErrorIs(t, res.Err, letta.ErrAuthFailed)
	assert.Contains(t, d.String(), "Error: authentication failed")
}

func TestRunTurn_SelectAgent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantOut string
		wantErr error
	}{
		{"usage", "/agent", "", "Usage: /agent <number|id>", nil},
		{"by number", "/agent 2", "agent-2", "Set agent: Beta (ID: agent-2)", nil},
		{"by id", "/agent agent-1", "agent-1", "Set agent: Bot (ID: agent-1)", nil},
		{"out of range", "/agent 9", "", "Invalid agent number: 9", letta.ErrInvalidChoice},
		{"unknown id", "/agent agent-x", "", "Failed to set agent", letta.ErrAgentNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{agents: testAgents}
			loop, d := newTestLoop(client, Options{})

			res := loop.RunTurn(context.Background(), tc.input)
			assert.Equal(t, OutcomeCommand, res.Outcome)
			if tc.wantErr != nil {
				assert.ErrorIs(t, res.Err, tc.wantErr)
			} else {
				assert.NoError(t, res.Err)
			}
			assert.Equal(t, tc.wantID, client.agentID)
			assert.Contains(t, d.String(), tc.wantOut)
		})
	}
}

func TestSelectAgent_UnlistedIDIsVerified(t *testing.T) {
	client := &fakeClient{agents: testAgents}
	loop, _ := newTestLoop(client, Options{})

	// Nothing listed yet, so the ID is checked with the server.
	agent, err := loop.SelectAgent(context.Background(), "agent-2")
	require.NoError(t, err)
	assert.Equal(t, "Beta", agent.Name)
	assert.Equal(t, 1, client.getCalls)
	assert.Equal(t, "Beta", loop.AgentName())
}

func TestRunTurn_Reasoning(t *testing.T) {
	loop, d := newTestLoop(&fakeClient{}, Options{})

	loop.RunTurn(context.Background(), "/reasoning")
	assert.True(t, loop.ShowReasoning())
	loop.RunTurn(context.Background(), "/reasoning")
	assert.False(t, loop.ShowReasoning())
	loop.RunTurn(context.Background(), "/reasoning on")
	assert.True(t, loop.ShowReasoning())
	loop.RunTurn(context.Background(), "/think off")
	assert.False(t, loop.ShowReasoning())
	loop.RunTurn(context.Background(), "/reasoning maybe")
	assert.False(t, loop.ShowReasoning())

	assert.Contains(t, d.String(), "Reasoning display: ON")
	assert.Contains(t, d.String(), "Usage: /reasoning [on|off]")
}

func TestRunTurn_ReasoningToggleAffectsNextTurn(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents, frags: texts("ok")}
	loop, _ := newTestLoop(client, Options{})

	loop.RunTurn(context.Background(), "first")
	loop.RunTurn(context.Background(), "/reasoning on")
	loop.RunTurn(context.Background(), "second")
	assert.Equal(t, []bool{false, true}, client.sentReasoning)
}

func TestRunTurn_Clear(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents, frags: texts("ok")}
	loop, d := newTestLoop(client, Options{})

	loop.RunTurn(context.Background(), "hello")
	require.Len(t, loop.History(), 2)

	res := loop.RunTurn(context.Background(), "/clear")
	require.NoError(t, res.Err)
	assert.Equal(t, 1, d.cleared)
	assert.Empty(t, loop.History())
	assert.Empty(t, d.String())
}

func TestRunTurn_History(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents, frags: texts("pong")}
	loop, d := newTestLoop(client, Options{})

	loop.RunTurn(context.Background(), "/history")
	assert.Contains(t, d.String(), "No messages yet.")

	loop.RunTurn(context.Background(), "ping")
	loop.RunTurn(context.Background(), "/history")
	assert.Contains(t, d.String(), "[Ana] ping")
	assert.Contains(t, d.String(), "[Bot] pong")
}

func TestRunTurn_Quit(t *testing.T) {
	for _, in := range []string{"/quit", "/exit", "/Q"} {
		loop, d := newTestLoop(&fakeClient{}, Options{})
		res := loop.RunTurn(context.Background(), in)
		assert.Equal(t, OutcomeQuit, res.Outcome, in)
		assert.Equal(t, "Goodbye!\n", d.String())
	}
}

func TestRunTurn_StyledOutput(t *testing.T) {
	d := &styledDisplay{}
	loop := NewLoop(&fakeClient{}, d, Options{})

	loop.RunTurn(context.Background(), "/nope")
	require.Len(t, d.lines, 2)
	assert.Equal(t, styledLine{LineError, "Unknown command: /nope"}, d.lines[0])
	assert.Equal(t, LineInfo, d.lines[1].kind)
	assert.Empty(t, d.String())
}

// =============================================================================
// VIBE
// =============================================================================

func TestRunTurn_VibeUnavailable(t *testing.T) {
	loop, d := newTestLoop(&fakeClient{}, Options{})
	res := loop.RunTurn(context.Background(), "/vibe start")
	assert.Equal(t, OutcomeCommand, res.Outcome)
	assert.Contains(t, d.String(), "Vibe mode is not available.")
}

func TestRunTurn_VibeStartSendsPromptOnce(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", agents: testAgents, frags: texts("vibing")}
	v := &fakeVibe{}
	loop, d := newTestLoop(client, Options{Vibe: v, VibePrompt: "do your thing"})

	res := loop.RunTurn(context.Background(), "/vibe start")
	assert.Equal(t, OutcomeReply, res.Outcome)
	assert.Equal(t, "vibing", res.Reply)
	assert.Equal(t, []string{"do your thing"}, client.sent)
	assert.Contains(t, d.String(), "Entering vibe mode (autonomous)")

	loop.RunTurn(context.Background(), "/vibe")
	assert.Contains(t, d.String(), "Vibe mode already running")
	assert.Equal(t, 2, v.starts)

	loop.RunTurn(context.Background(), "/vibe status")
	assert.Contains(t, d.String(), "Vibe status: running pid=77 last_run=- runs=2")

	loop.RunTurn(context.Background(), "/vibe stop")
	assert.Equal(t, 1, v.stops)
	assert.Contains(t, d.String(), "Vibe mode stopping...")
}

func TestRunTurn_VibeStartFailure(t *testing.T) {
	client := &fakeClient{agentID: "agent-1"}
	v := &fakeVibe{startErr: errors.New("no executable")}
	loop, d := newTestLoop(client, Options{Vibe: v, VibePrompt: "p"})

	res := loop.RunTurn(context.Background(), "/vibe start")
	assert.Equal(t, OutcomeCommand, res.Outcome)
	assert.Error(t, res.Err)
	assert.Contains(t, d.String(), "Failed to start vibe mode: no executable")
	assert.Empty(t, client.sent)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "reply", OutcomeReply.String())
	assert.Equal(t, "quit", OutcomeQuit.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
}
