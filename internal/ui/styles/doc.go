// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the quorum TUI.

All colors use Lip Gloss AdaptiveColor so the same palette reads well on
light and dark terminals.

# Color System (colors.go)

## Accent Colors

  - Purple - Primary accent, selected responses
  - Cyan - Brand color, user messages, commands
  - Emerald - Success states, committed selections
  - Amber - Awaiting-selection gate, warnings
  - Rose - Errors and failed model calls

## Pane Colors

Side-by-side model panes each get a stable accent from the PaneColors
cycle, matched to the 1-9 selection keys:

	accent := styles.PaneColor(paneIndex)

## Surface and Text Colors

Layered surfaces (Surface, SurfaceDim, Overlay) and hierarchical text
colors (TextPrimary, TextSecondary, TextMuted) follow the usual
elevation conventions.

# Theme System (theme.go)

The Theme struct bundles every configured lipgloss style and detects
terminal capability at construction:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}

# Spinners (spinners.go)

Pre-defined frame sets for the streaming indicator:

	styles.BrailleSpinner - smooth 10-frame spinner
	styles.DotsSpinner    - classic three-dot animation

# Usage Example

	header := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)

	pane := theme.PaneBorder(2, false)
*/
package styles
