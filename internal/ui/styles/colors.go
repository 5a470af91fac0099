// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, selected responses, focus rings
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// PurpleDeep - Darker purple for backgrounds
var PurpleDeep = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#4C1D95"}

// Cyan - Brand color, user messages, commands
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// CyanDeep - Darker cyan for backgrounds
var CyanDeep = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#164E63"}

// Emerald - Success states, committed selections
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// EmeraldDeep - Darker emerald for backgrounds
var EmeraldDeep = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#064E3B"}

// Rose - Errors, failed model calls
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// RoseDeep - Darker rose for backgrounds
var RoseDeep = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#881337"}

// Amber - Awaiting-selection gate, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// AmberDeep - Darker amber for backgrounds
var AmberDeep = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#78350F"}

// =============================================================================
// PANE COLORS
// =============================================================================

// PaneColors are the per-model accents for side-by-side response panes.
// The order matches the 1-9 selection keys so the key hint, the pane
// border, and the committed response all share one color.
var PaneColors = []lipgloss.AdaptiveColor{
	{Light: "#0891B2", Dark: "#22D3EE"}, // cyan
	{Light: "#7C3AED", Dark: "#A78BFA"}, // purple
	{Light: "#059669", Dark: "#34D399"}, // emerald
	{Light: "#D97706", Dark: "#FBBF24"}, // amber
	{Light: "#DB2777", Dark: "#F472B6"}, // pink
	{Light: "#2563EB", Dark: "#60A5FA"}, // blue
	{Light: "#65A30D", Dark: "#A3E635"}, // lime
	{Light: "#C026D3", Dark: "#E879F9"}, // fuchsia
	{Light: "#EA580C", Dark: "#FB923C"}, // orange
}

// PaneColor returns the accent for a pane index, cycling past nine.
func PaneColor(i int) lipgloss.AdaptiveColor {
	if i < 0 {
		i = 0
	}
	return PaneColors[i%len(PaneColors)]
}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// SurfaceDim - Slightly darker/lighter surface for headers and footers
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// SurfaceBright - Slightly lighter/darker surface for highlights
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#313244"}

// Overlay - Borders, separators, subtle backgrounds
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// OverlayDim - Dimmer overlay for less prominent elements
var OverlayDim = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps, very subtle text
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// TextInverse - Text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

// User message bubble - Cyan tones
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#CFFAFE", Dark: "#164E63"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#155E75", Dark: "#CFFAFE"}
var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Assistant message bubble - Soft purple tones
var AssistantBubbleBg = lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#3B3655"}
var AssistantBubbleFg = lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}

// System notes - Amber tones
var SystemNoteBg = lipgloss.AdaptiveColor{Light: "#FEF3C7", Dark: "#78350F"}
var SystemNoteFg = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FEF3C7"}
var SystemNoteBorder = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}
