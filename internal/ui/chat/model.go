// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/animusuno/animus-chat/internal/commands"
	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State is the current state of the chat view.
type State int

const (
	StateReady State = iota // Ready for input
	StateBusy               // A turn is running
)

// Layout rows outside the viewport: header, input box (with border), status bar.
const chromeHeight = 5

// turnDoneMsg reports the end of a turn started by the model.
type turnDoneMsg struct {
	Results []session.Result
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	Theme *styles.Theme

	// Markdown renders finished agent replies as markdown.
	Markdown bool

	// Startup lists inputs run before the first prompt, e.g. "/agents".
	Startup []string

	// Context bounds every turn. Defaults to context.Background().
	Context context.Context

	Logger *slog.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx     context.Context
	loop    *session.Loop
	display *Display
	theme   *styles.Theme
	keys    KeyMap
	logger  *slog.Logger
	startup []string

	// Dimensions
	width  int
	height int
	ready  bool

	transcript *transcript
	markdown   *markdown
	cancelMgr  *cancelManager
	completer  *commands.Completer

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	state     State
	ticking   bool
	turnStart time.Time
	statusMsg string
}

// New creates the chat model. display must be the Display the loop writes to.
func New(loop *session.Loop, display *Display, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Type a message or /help"
	ti.CharLimit = 8192
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	completer := commands.NewCompleter(commands.Default())
	completer.AgentsFn = func() []string {
		var ids []string
		for _, a := range loop.Agents() {
			ids = append(ids, a.ID)
		}
		return ids
	}

	m := Model{
		ctx:        ctx,
		loop:       loop,
		display:    display,
		theme:      theme,
		keys:       DefaultKeyMap(),
		logger:     logger,
		startup:    opts.Startup,
		transcript: newTranscript(),
		cancelMgr:  newCancelManager(),
		completer:  completer,
		input:      ti,
		spinner:    sp,
	}
	if opts.Markdown {
		m.markdown = newMarkdown(theme)
	}
	if len(opts.Startup) > 0 {
		m.state = StateBusy
		m.ticking = true
	}
	return m
}

// Init runs the startup inputs.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if len(m.startup) > 0 {
		cmds = append(cmds, m.runTurn(m.startup...), streamTickCmd(), m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// State returns the current state.
func (m Model) State() State {
	return m.state
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case StreamTickMsg:
		m.applyPending()
		if m.state == StateBusy {
			return m, streamTickCmd()
		}
		m.ticking = false
		return m, nil

	case turnDoneMsg:
		return m.finishTurn(msg)

	case spinner.TickMsg:
		if m.state != StateBusy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelTurn()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateBusy {
			if m.cancelTurn() {
				m.statusMsg = "Cancelling..."
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Reasoning):
		show := !m.loop.ShowReasoning()
		m.loop.SetShowReasoning(show)
		m.statusMsg = "Reasoning display: " + onOff(show)
		return m, nil
	}

	if m.state == StateBusy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Clear):
		return m.submit("/clear")
	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a turn for text.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.statusMsg = ""

	if commands.IsCommand(text) {
		m.transcript.addSystem(session.LineInfo, "> "+text)
	} else {
		m.transcript.addUser(m.loop.DisplayName(), text)
	}
	m.refresh(true)

	m.state = StateBusy
	m.turnStart = time.Now()
	cmds := []tea.Cmd{m.runTurn(text), m.spinner.Tick}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, streamTickCmd())
	}
	return m, tea.Batch(cmds...)
}

// runTurn runs inputs in order on the loop, stopping at a quit.
func (m *Model) runTurn(inputs ...string) tea.Cmd {
	ctx := m.beginTurnContext()
	loop := m.loop
	return func() tea.Msg {
		results := make([]session.Result, 0, len(inputs))
		for _, in := range inputs {
			res := loop.RunTurn(ctx, in)
			results = append(results, res)
			if res.Outcome == session.OutcomeQuit {
				break
			}
		}
		return turnDoneMsg{Results: results}
	}
}

func (m Model) finishTurn(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	m.cancelTurn()
	m.applyPending()
	m.transcript.finish()
	m.state = StateReady
	m.statusMsg = ""
	m.refresh(true)

	for _, res := range msg.Results {
		if res.Err != nil {
			m.logger.Debug("turn ended with error", "outcome", res.Outcome.String(), "error", res.Err)
		}
		if res.Outcome == session.OutcomeQuit {
			return m, tea.Quit
		}
	}
	if !m.turnStart.IsZero() {
		m.logger.Debug("turn finished", "elapsed", time.Since(m.turnStart))
	}
	return m, nil
}

// applyPending replays the display's queued writes onto the transcript.
func (m *Model) applyPending() {
	ops := m.display.buf.drain()
	if len(ops) == 0 {
		return
	}
	for _, op := range ops {
		m.transcript.apply(op)
	}
	m.refresh(m.state == StateBusy)
}

// complete applies Tab completion to the input line.
func (m *Model) complete() {
	candidates := m.completer.Complete(m.input.Value())
	switch len(candidates) {
	case 0:
		return
	case 1:
		m.input.SetValue(candidates[0] + " ")
	default:
		m.input.SetValue(commonPrefix(candidates))
		m.statusMsg = strings.Join(candidates, "  ")
	}
	m.input.CursorEnd()
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6
	m.refresh(false)
}

// refresh redraws the transcript into the viewport, following the bottom
// when follow is set or the view was already there.
func (m *Model) refresh(follow bool) {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.transcript.render(m.width, m.theme, m.markdown))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func commonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, v := range values[1:] {
		for !strings.HasPrefix(v, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
