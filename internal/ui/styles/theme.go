// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the quorum TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemNote      lipgloss.Style
	RoleUser        lipgloss.Style
	RoleAssistant   lipgloss.Style
	ModelTag        lipgloss.Style

	// ==========================================================================
	// RESPONSE PANE STYLES
	// ==========================================================================

	PaneTitle     lipgloss.Style
	PaneKeyHint   lipgloss.Style
	PaneUsage     lipgloss.Style
	PaneError     lipgloss.Style
	PaneStreaming lipgloss.Style
	SelectedBadge lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style
	CharCount        lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusGate   lipgloss.Style
	StatusModels lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// COMPLETION POPUP STYLES
	// ==========================================================================

	CompletionPopup    lipgloss.Style
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// ERROR BOX STYLES
	// ==========================================================================

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style
	ErrorTip     lipgloss.Style

	// ==========================================================================
	// STATUS INDICATOR STYLES
	// ==========================================================================

	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 2)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Transcript
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(2)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)

	t.SystemNote = lipgloss.NewStyle().
		Foreground(SystemNoteFg).
		Italic(true).
		Padding(0, 1)

	t.RoleUser = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.RoleAssistant = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.ModelTag = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Response panes
	t.PaneTitle = lipgloss.NewStyle().
		Bold(true)

	t.PaneKeyHint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.PaneUsage = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.PaneError = lipgloss.NewStyle().
		Foreground(Rose)

	t.PaneStreaming = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SelectedBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.InputText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.CharCount = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusGate = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Amber).
		Padding(0, 1)

	t.StatusModels = lipgloss.NewStyle().
		Foreground(Cyan)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Completion popup
	t.CompletionPopup = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)

	t.CompletionItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.CompletionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple)

	t.CompletionDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Error box
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.ErrorTip = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status indicators
	t.SuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)

	t.WarningStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.InfoStyle = lipgloss.NewStyle().
		Foreground(Cyan)
}

// PaneBorder returns the bordered container style for a response pane.
// The border carries the pane's accent color; a selected pane switches
// to a double border in the selection accent.
func (t *Theme) PaneBorder(index int, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(PaneColor(index)).
		Padding(0, 1)
	if selected {
		s = s.BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(Emerald)
	}
	return s
}

// PaneTitleStyle returns the pane header style in the pane's accent.
func (t *Theme) PaneTitleStyle(index int) lipgloss.Style {
	return t.PaneTitle.Foreground(PaneColor(index))
}
