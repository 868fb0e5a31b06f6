// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/animusuno/animus-chat/internal/ui/styles"
)

func init() {
	// Respects NO_COLOR, FORCE_COLOR and TTY detection.
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// BannerStyle is used for the chat banner title
	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// SectionStyle is used for headers in command output
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// AgentStyle marks the speaking agent
	AgentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Emerald)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Success).
			Bold(true)

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Error).
			Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Warning)

	// DimStyle is used for reasoning and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	// SeparatorStyle is used for rules
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Border)
)

// RenderSeparator renders a rule of the given width (60 by default).
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// renderLines styles each line of text separately so lipgloss does not pad
// short lines to the width of the longest.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
