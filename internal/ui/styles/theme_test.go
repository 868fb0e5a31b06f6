// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestNewTheme_PinnedBackground(t *testing.T) {
	if theme := NewTheme(ThemeDark); !theme.IsDark {
		t.Error("dark theme should report IsDark")
	}
	if theme := NewTheme(ThemeLight); theme.IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestTheme_RenderStatus(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	theme := NewTheme(ThemeDark)

	if got := theme.RenderStatus(true, "connected"); got != "[OK] connected" {
		t.Errorf("RenderStatus(true) = %q", got)
	}
	if got := theme.RenderStatus(false, "failed"); !strings.HasPrefix(got, "[X] ") {
		t.Errorf("RenderStatus(false) = %q", got)
	}
}

func TestTheme_ReasoningIsIndented(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	theme := NewTheme(ThemeDark)

	if got := theme.Reasoning.Render("pondering"); got != "  pondering" {
		t.Errorf("Reasoning.Render = %q", got)
	}
}
