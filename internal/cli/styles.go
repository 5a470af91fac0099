// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for all quorum CLI commands.
//
// Every command file uses these instead of defining its own, so the
// CLI surface stays visually consistent with the TUI palette.

package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quorum/internal/ui/styles"
)

// init configures the lipgloss color profile from terminal capability,
// which also covers NO_COLOR and piped output.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Prompt for the REPL input line
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// Welcome banner
	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// Secondary information lines
	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// Command names, success markers
	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// Cautions and the selection gate notice
	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// Errors
	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	// Section headers for summaries and lists
	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)

	// De-emphasized detail (paths, timings, usage numbers)
	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// modelPrefix renders a model's display name in its pane accent color,
// matching the color the TUI gives the same roster slot.
func modelPrefix(index int, name string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.PaneColor(index)).
		Render("[" + name + "]")
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for responses.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()),
	)
	if err != nil {
		// Plain text fallback when the renderer cannot initialize
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display, returning the
// original content when rendering is unavailable or fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a response, markdown-rendered on a TTY and raw
// otherwise so piped output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Print(response)
	}
}
