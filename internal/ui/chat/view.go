// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/animusuno/animus-chat/internal/session"
	"github.com/animusuno/animus-chat/internal/util"
)

const maxAgentWidth = 32

// View renders the chat view.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	agent := m.loop.AgentName()
	if agent == "" {
		agent = session.DefaultAgentName
	}
	agent = util.TruncateWidth(agent, maxAgentWidth)
	title := m.theme.HeaderTitle.Render("Animus Chat")
	info := m.theme.HeaderInfo.Render(fmt.Sprintf("%s  |  %s", agent, m.loop.DisplayName()))
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(title + "  " + info)
}

func (m Model) renderInput() string {
	var content string
	if m.state == StateBusy {
		elapsed := time.Since(m.turnStart).Round(time.Second)
		if m.turnStart.IsZero() {
			elapsed = 0
		}
		content = fmt.Sprintf("%s Waiting for reply... %s (Esc to cancel)", m.spinner.View(), elapsed)
	} else {
		content = m.input.View()
	}
	return m.theme.InputBox.Width(m.width - 2).Render(content)
}

func (m Model) renderStatusBar() string {
	parts := []string{
		m.theme.StatusKey.Render("reasoning ") + m.reasoningIndicator(),
	}
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.StatusKey.Render(h.Key)+" "+h.Desc)
	}
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(strings.Join(parts, "  "))
}

func (m Model) reasoningIndicator() string {
	if m.loop.ShowReasoning() {
		return m.theme.StatusOn.Render("ON")
	}
	return m.theme.StatusOff.Render("OFF")
}
