// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// statusbar.go - bottom status bar with width-adaptive layouts.

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/quorum/internal/ui/styles"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the session state the bar reports.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusSelecting
	StatusError
)

// String returns the label for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming"
	case StatusSelecting:
		return "Pick a response"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns the one-cell indicator for the status.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return "●"
	case StatusStreaming:
		return "◐"
	case StatusSelecting:
		return "◆"
	case StatusError:
		return "✗"
	default:
		return "○"
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the bottom bar. It adapts its layout to the terminal width:
// below 60 columns only the state and usage show, below 100 the roster and
// document counts join, and wide terminals get the format and shortcut hints.
type StatusBar struct {
	width  int
	status Status

	modelCount int
	docCount   int
	format     string

	tokensIn  int
	tokensOut int

	hint string
}

// NewStatusBar creates a status bar in the ready state.
func NewStatusBar() StatusBar {
	return StatusBar{status: StatusReady}
}

func (b *StatusBar) SetWidth(width int) { b.width = width }

func (b *StatusBar) SetStatus(s Status) { b.status = s }

func (b *StatusBar) SetModels(n int) { b.modelCount = n }

func (b *StatusBar) SetDocs(n int) { b.docCount = n }

func (b *StatusBar) SetFormat(f string) { b.format = f }

func (b *StatusBar) SetHint(hint string) { b.hint = hint }

func (b *StatusBar) SetUsage(in, out int) { b.tokensIn, b.tokensOut = in, out }

// View renders the bar at the configured width.
func (b StatusBar) View() string {
	switch {
	case b.width < 60:
		return b.viewNarrow()
	case b.width < 100:
		return b.viewMedium()
	default:
		return b.viewWide()
	}
}

func (b StatusBar) statusStyle() lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch b.status {
	case StatusStreaming:
		return base.Foreground(styles.Purple)
	case StatusSelecting:
		return base.Foreground(styles.Amber)
	case StatusError:
		return base.Foreground(styles.Rose)
	default:
		return base.Foreground(styles.Emerald)
	}
}

func (b StatusBar) usageText() string {
	if b.tokensIn == 0 && b.tokensOut == 0 {
		return ""
	}
	return fmt.Sprintf("%d→%d tok", b.tokensIn, b.tokensOut)
}

func (b StatusBar) viewNarrow() string {
	left := b.statusStyle().Render(b.status.Icon() + " " + b.status.String())
	right := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(b.usageText())
	return b.spread(left, right)
}

func (b StatusBar) viewMedium() string {
	segments := []string{
		b.statusStyle().Render(b.status.Icon() + " " + b.status.String()),
		lipgloss.NewStyle().Foreground(styles.TextSecondary).
			Render(fmt.Sprintf("%d models", b.modelCount)),
	}
	if b.docCount > 0 {
		segments = append(segments, lipgloss.NewStyle().Foreground(styles.TextSecondary).
			Render(fmt.Sprintf("%d docs", b.docCount)))
	}
	left := strings.Join(segments, separator())
	right := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(b.usageText())
	return b.spread(left, right)
}

func (b StatusBar) viewWide() string {
	segments := []string{
		b.statusStyle().Render(b.status.Icon() + " " + b.status.String()),
		lipgloss.NewStyle().Foreground(styles.TextSecondary).
			Render(fmt.Sprintf("%d models", b.modelCount)),
	}
	if b.docCount > 0 {
		segments = append(segments, lipgloss.NewStyle().Foreground(styles.TextSecondary).
			Render(fmt.Sprintf("%d docs · %s", b.docCount, b.format)))
	}
	if usage := b.usageText(); usage != "" {
		segments = append(segments, lipgloss.NewStyle().Foreground(styles.TextMuted).Render(usage))
	}
	left := strings.Join(segments, separator())

	hint := b.hint
	if hint == "" {
		hint = b.defaultHint()
	}
	right := lipgloss.NewStyle().Foreground(styles.TextMuted).Render(hint)
	return b.spread(left, right)
}

// defaultHint picks the shortcut reminder for the current state.
func (b StatusBar) defaultHint() string {
	switch b.status {
	case StatusStreaming:
		return "esc cancel"
	case StatusSelecting:
		return "1-9 pick · tab cycle"
	default:
		return "/ commands · ? help · ctrl+q quit"
	}
}

func separator() string {
	return lipgloss.NewStyle().Foreground(styles.OverlayDim).Render(" │ ")
}

// spread lays left and right flush to the edges, padding the middle.
func (b StatusBar) spread(left, right string) string {
	bar := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Padding(0, 1).
		Width(b.width)

	gap := b.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Too tight for both: keep the state, truncate from the right.
		return bar.Render(truncateCell(left, b.width-2))
	}
	return bar.Render(left + strings.Repeat(" ", gap) + right)
}

// truncateCell trims a styled string to the given display width.
func truncateCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	// Styled runs make exact trimming fiddly; fall back to the plain text.
	plain := stripToWidth(s, width)
	return plain
}

func stripToWidth(s string, width int) string {
	var out strings.Builder
	w := 0
	inEscape := false
	for _, r := range s {
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		if r == 0x1b {
			inEscape = true
			continue
		}
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}
		out.WriteRune(r)
		w += rw
	}
	return out.String()
}
