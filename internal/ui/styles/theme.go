// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Theme holds the styles of the full-screen chat.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	UserLabel  lipgloss.Style
	AgentLabel lipgloss.Style
	UserText   lipgloss.Style
	AgentText  lipgloss.Style
	Reasoning  lipgloss.Style
	SystemText lipgloss.Style
	ErrorText  lipgloss.Style
	Success    lipgloss.Style

	InputBox    lipgloss.Style
	InputPrompt lipgloss.Style

	StatusBar lipgloss.Style
	StatusKey lipgloss.Style
	StatusOn  lipgloss.Style
	StatusOff lipgloss.Style
	Spinner   lipgloss.Style
}

// NewTheme creates a theme. name is one of the Theme* constants; "auto" (or
// anything unrecognized) follows the terminal background.
func NewTheme(name string) *Theme {
	var isDark bool
	switch name {
	case ThemeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = lipgloss.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: lipgloss.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.AgentLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)
	t.UserText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.AgentText = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.Reasoning = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)
	t.SystemText = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
	t.Success = lipgloss.NewStyle().
		Foreground(Success)

	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.StatusOn = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.StatusOff = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	return t
}

// RenderStatus renders message with a shape indicator in the success or
// error color.
func (t *Theme) RenderStatus(ok bool, message string) string {
	if ok {
		return t.Success.Render(StatusIndicators.Success + " " + message)
	}
	return t.ErrorText.Render(StatusIndicators.Error + " " + message)
}
