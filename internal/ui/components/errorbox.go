// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errorbox.go - titled error notice with an optional tip line.

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quorum/internal/ui/styles"
)

// ErrorBox is a dismissible error notice. Title names the failure, Message
// carries the detail, and Tip (optional) suggests the fix.
type ErrorBox struct {
	Title   string
	Message string
	Tip     string

	width int
}

// NewErrorBox creates an error notice.
func NewErrorBox(title, message, tip string) ErrorBox {
	return ErrorBox{Title: title, Message: message, Tip: tip}
}

// SetWidth caps the rendered width.
func (e *ErrorBox) SetWidth(width int) { e.width = width }

// View renders the framed notice.
func (e ErrorBox) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Rose)

	messageStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	tipStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	var body strings.Builder
	body.WriteString(titleStyle.Render("✗ " + e.Title))
	if e.Message != "" {
		body.WriteString("\n")
		body.WriteString(messageStyle.Render(e.Message))
	}
	if e.Tip != "" {
		body.WriteString("\n")
		body.WriteString(tipStyle.Render("tip: " + e.Tip))
	}

	width := e.width
	if width <= 0 {
		width = 60
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Rose).
		Padding(0, 1).
		MaxWidth(width).
		Render(body.String())
}
