// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// header.go - top bar with the roster tags and the selection gate badge.

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quorum/internal/ui/styles"
)

// Header is the top bar: the quorum brand, the roster as colored model tags,
// and a badge while a response pick is pending.
type Header struct {
	width   int
	version string
	models  []string
	gated   bool
}

// NewHeader creates a header for the given version string.
func NewHeader(version string) Header {
	return Header{version: version}
}

func (h *Header) SetWidth(width int) { h.width = width }

func (h *Header) SetModels(names []string) { h.models = names }

func (h *Header) SetGated(gated bool) { h.gated = gated }

// View renders the header line.
func (h Header) View() string {
	brand := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Purple).
		Render("quorum")

	version := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render(" " + h.version)

	var tags []string
	for i, name := range h.models {
		tag := lipgloss.NewStyle().
			Foreground(styles.PaneColor(i)).
			Bold(true).
			Render("[" + name + "]")
		tags = append(tags, tag)
	}
	roster := strings.Join(tags, " ")

	left := brand + version
	if roster != "" {
		left += "  " + roster
	}

	right := ""
	if h.gated {
		right = lipgloss.NewStyle().
			Background(styles.Amber).
			Foreground(styles.TextInverse).
			Padding(0, 1).
			Bold(true).
			Render("PICK 1-9")
	}

	bar := lipgloss.NewStyle().
		Background(styles.Surface).
		Padding(0, 1).
		Width(h.width)

	gap := h.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return bar.Render(truncateCell(left, h.width-2))
	}
	return bar.Render(left + strings.Repeat(" ", gap) + right)
}
