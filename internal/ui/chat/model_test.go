// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"iter"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/stream"
	"github.com/animusuno/animus-chat/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeClient struct {
	agentID string
	agents  []letta.Agent
	frags   []stream.Fragment

	// block, when set, makes the stream wait for cancellation.
	block bool
}

func (f *fakeClient) SendMessageStream(ctx context.Context, _ string, _ bool) iter.Seq2[stream.Fragment, error] {
	return func(yield func(stream.Fragment, error) bool) {
		if f.block {
			<-ctx.Done()
			yield(stream.Fragment{}, ctx.Err())
			return
		}
		for _, fr := range f.frags {
			if !yield(fr, nil) {
				return
			}
		}
	}
}

func (f *fakeClient) ListAgents(context.Context) ([]letta.Agent, error) { return f.agents, nil }

func (f *fakeClient) GetAgent(_ context.Context, id string) (*letta.Agent, error) {
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
func (f *fakeClient) BaseURL() string { return "http://letta.test" }

func newTestModel(t *testing.T, client *fakeClient, showReasoning bool) Model {
	t.Helper()
	display := NewDisplay()
	loop := session.NewLoop(client, display, session.Options{
		DisplayName:   "Alice",
		ShowReasoning: showReasoning,
	})
	m := New(loop, display, Options{Theme: styles.NewTheme(styles.ThemeDark)})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

// runTurn runs a turn synchronously and feeds its completion back.
func runTurn(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	msg := m.runTurn(input)()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func entryTexts(m Model) []string {
	var out []string
	for _, e := range m.transcript.entries {
		out = append(out, e.text.String())
	}
	return out
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_ReplyWithReasoning(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		agents:  []letta.Agent{{ID: "agent-1", Name: "Bot"}},
		frags: []stream.Fragment{
			{Text: stream.Marker + "thinking"},
			{Text: " harder", Continued: true},
			{Text: "Hello "},
			{Text: "there"},
		},
	}
	m := newTestModel(t, client, true)

	m, cmd := runTurn(t, m, "hi")
	assert.Nil(t, cmd)
	assert.Equal(t, StateReady, m.State())

	require.Len(t, m.transcript.entries, 2)
	reasoning, reply := m.transcript.entries[0], m.transcript.entries[1]
	assert.Equal(t, entryReasoning, reasoning.kind)
	assert.Equal(t, "thinking harder", reasoning.text.String())
	assert.Equal(t, entryAgent, reply.kind)
	assert.Equal(t, "Bot", reply.speaker)
	assert.Equal(t, "Hello there", reply.text.String())
	assert.False(t, reply.open)

	view := m.viewport.View()
	assert.Contains(t, view, "Hello there")
	assert.Contains(t, view, stream.ReasoningLabel)
}

func TestModel_HiddenReasoningNeverShown(t *testing.T) {
	client := &fakeClient{
		agentID: "agent-1",
		frags:   []stream.Fragment{{Text: stream.Marker + "secret"}, {Text: "visible"}},
	}
	m := newTestModel(t, client, false)

	m, _ = runTurn(t, m, "hi")
	assert.Equal(t, []string{"visible"}, entryTexts(m))
	assert.NotContains(t, m.viewport.View(), "secret")
}

func TestModel_SubmitAddsUserEntryAndBlocksInput(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)
	m.input.SetValue("hello there")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)

	assert.Equal(t, StateBusy, m.State())
	assert.Empty(t, m.input.Value())
	require.Len(t, m.transcript.entries, 1)
	assert.Equal(t, entryUser, m.transcript.entries[0].kind)
	assert.Equal(t, "Alice", m.transcript.entries[0].speaker)

	// Typing is ignored until the turn ends.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Empty(t, updated.(Model).input.Value())
	m.cancelTurn()
}

func TestModel_EmptySubmitIgnored(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, StateReady, updated.(Model).State())
}

func TestModel_CancelInterruptsTurn(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", block: true}
	m := newTestModel(t, client, false)

	turn := m.runTurn("hi")
	m.state = StateBusy

	done := make(chan tea.Msg, 1)
	go func() { done <- turn() }()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, "Cancelling...", m.statusMsg)

	msg := <-done
	result := msg.(turnDoneMsg).Results[0]
	assert.Equal(t, session.OutcomeFailed, result.Outcome)
	assert.True(t, errors.Is(result.Err, context.Canceled))

	updated, _ = m.Update(msg)
	m = updated.(Model)
	assert.Equal(t, StateReady, m.State())
	assert.Contains(t, m.viewport.View(), "Interrupted.")
}

func TestModel_QuitCommandEndsProgram(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)

	_, cmd := runTurn(t, m, "/quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ClearCommandEmptiesTranscript(t *testing.T) {
	client := &fakeClient{agentID: "agent-1", frags: []stream.Fragment{{Text: "reply"}}}
	m := newTestModel(t, client, false)

	m, _ = runTurn(t, m, "hi")
	require.NotEmpty(t, m.transcript.entries)

	m, _ = runTurn(t, m, "/clear")
	assert.Empty(t, m.transcript.entries)
}

func TestModel_StatusCommandOutput(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)

	m, _ = runTurn(t, m, "/status")
	texts := entryTexts(m)
	assert.Contains(t, texts, "Status:")
	assert.Contains(t, texts, "Server: http://letta.test")
	assert.Contains(t, texts, "Agent: None selected")
	for _, e := range m.transcript.entries {
		assert.Equal(t, entrySystem, e.kind)
	}
}

func TestModel_ToggleReasoningKey(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(Model)
	assert.True(t, m.loop.ShowReasoning())
	assert.Equal(t, "Reasoning display: ON", m.statusMsg)
}

func TestModel_TabCompletion(t *testing.T) {
	m := newTestModel(t, &fakeClient{}, false)

	m.input.SetValue("/rea")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, "/reasoning ", m.input.Value())

	m.input.SetValue("/ag")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, "/agent", m.input.Value())
	assert.Contains(t, m.statusMsg, "/agents")
}

func TestModel_StartupInputsRunInOrder(t *testing.T) {
	client := &fakeClient{agents: []letta.Agent{{ID: "agent-1", Name: "Bot"}}}
	display := NewDisplay()
	loop := session.NewLoop(client, display, session.Options{DisplayName: "Alice"})
	m := New(loop, display, Options{
		Theme:   styles.NewTheme(styles.ThemeDark),
		Startup: []string{"/agents", "/agent 1"},
	})
	assert.Equal(t, StateBusy, m.State())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	msg := m.runTurn(m.startup...)()
	require.Len(t, msg.(turnDoneMsg).Results, 2)
	updated, _ = m.Update(msg)
	m = updated.(Model)

	assert.Equal(t, "agent-1", client.agentID)
	assert.Contains(t, entryTexts(m), "Set agent: Bot (ID: agent-1)")
	assert.Equal(t, "Bot", m.loop.AgentName())
}

func TestModel_ViewBeforeResize(t *testing.T) {
	display := NewDisplay()
	loop := session.NewLoop(&fakeClient{}, display, session.Options{})
	m := New(loop, display, Options{Theme: styles.NewTheme(styles.ThemeDark)})
	assert.Equal(t, "Initializing...", m.View())
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, "/agent", commonPrefix([]string{"/agent", "/agents"}))
	assert.Equal(t, "/", commonPrefix([]string{"/help", "/quit"}))
	assert.Equal(t, "", commonPrefix(nil))
}
