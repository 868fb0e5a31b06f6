// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the color palette and the full-screen chat theme.
// Colors are lipgloss AdaptiveColors, so they follow a light or dark
// terminal background unless the theme pins one.
package styles
