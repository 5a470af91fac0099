// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - rendering: transcript, response panes, input, chrome.

package compare

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/ui/components"
	"github.com/jeranaias/quorum/internal/ui/styles"
)

const (
	// minPaneWidth is the narrowest useful response column; below it the
	// panes stack vertically instead.
	minPaneWidth = 26

	// paneBodyLines caps a pane's visible body so the input stays on screen.
	paneBodyLines = 10

	// completionPopupRows caps the completion menu height.
	completionPopupRows = 6
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full frame: header, transcript viewport, live panes,
// notices, input line, and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	above, below := m.chromeParts()

	parts := make([]string, 0, len(above)+1+len(below))
	parts = append(parts, above...)
	parts = append(parts, m.viewport.View())
	parts = append(parts, below...)

	out := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if lipgloss.Height(out) > m.height {
		out = lipgloss.NewStyle().MaxHeight(m.height).Render(out)
	}
	return out
}

// chromeParts returns everything around the viewport, split into the rows
// above and below it. syncViewport measures the same parts, which keeps the
// height math and the composition in agreement.
func (m Model) chromeParts() (above, below []string) {
	above = []string{m.header.View()}

	if pr := m.renderPanes(); pr != "" {
		below = append(below, pr)
	}
	if nb := m.renderNotice(); nb != "" {
		below = append(below, nb)
	}
	if cp := m.renderCompletion(); cp != "" {
		below = append(below, cp)
	}
	below = append(below, m.renderInput())
	if m.showHelp {
		below = append(below, m.help.View(m.keys))
	}
	below = append(below, m.status.View())
	return above, below
}

// syncViewport rebuilds the transcript when dirty and fits the viewport to
// whatever height the chrome leaves over.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	if m.transcriptDirty {
		m.rebuildTranscript()
	}

	above, below := m.chromeParts()
	used := 0
	for _, part := range above {
		used += lipgloss.Height(part)
	}
	for _, part := range below {
		used += lipgloss.Height(part)
	}

	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// rebuildTranscript re-renders the conversation into the viewport. Only
// picked responses appear; the rejected columns of past turns stay out.
func (m *Model) rebuildTranscript() {
	m.transcriptDirty = false

	var blocks []string
	for _, msg := range m.app.History().Messages() {
		switch v := msg.(type) {
		case *chat.UserMessage:
			blocks = append(blocks, m.renderUserBubble(v.DisplayContent()))
		case *chat.AssistantMessage:
			if !v.Selected {
				continue
			}
			blocks = append(blocks, m.renderAssistantBlock(v))
		}
	}

	if len(blocks) == 0 {
		blocks = append(blocks, m.welcomeBlock())
	}

	m.transcript = strings.Join(blocks, "\n\n")
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

// renderUserBubble right-aligns the prompt in a bordered bubble.
func (m Model) renderUserBubble(text string) string {
	bubble := m.theme.UserBubble.
		MaxWidth(m.maxBubbleWidth()).
		Render(text)

	indent := m.contentWidth() - lipgloss.Width(bubble)
	if indent > 0 {
		bubble = lipgloss.NewStyle().MarginLeft(indent).Render(bubble)
	}
	return bubble
}

// renderAssistantBlock renders a picked response: model tag, prose with
// inline code styling, fenced blocks through the highlighter, usage footer.
func (m Model) renderAssistantBlock(resp *chat.AssistantMessage) string {
	tagStyle := m.theme.RoleAssistant
	if slot := m.rosterSlot(resp.ModelID); slot >= 0 {
		tagStyle = tagStyle.Foreground(styles.PaneColor(slot))
	}
	header := tagStyle.Render(resp.ModelName)
	if resp.Provider != "" {
		header += " " + m.theme.ModelTag.Render("("+resp.Provider+")")
	}

	bodyWidth := m.maxBubbleWidth()
	parts := []string{header}
	for _, seg := range components.ParseCodeBlocks(resp.Text) {
		if seg.Code {
			parts = append(parts, components.NewCodeBlock(seg.Language, seg.Text).
				SetMaxWidth(bodyWidth).
				Render())
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, lipgloss.NewStyle().
			Width(bodyWidth).
			Render(components.RenderInlineCode(text)))
	}

	if resp.Usage != nil {
		line := fmt.Sprintf("%d→%d tok", resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if tps, ok := resp.Usage.TokensPerSecond(); ok {
			line += fmt.Sprintf(" · %.0f tok/s", tps)
		}
		parts = append(parts, m.theme.PaneUsage.Render(line))
	}

	return lipgloss.NewStyle().MarginLeft(2).Render(strings.Join(parts, "\n"))
}

// welcomeBlock fills the empty transcript on first launch.
func (m Model) welcomeBlock() string {
	models := m.app.Models().Models()

	var b strings.Builder
	b.WriteString("Ask once, hear from every model.\n\n")
	switch len(models) {
	case 0:
		b.WriteString("The roster is empty. Configure default_models or pass --model.")
	case 1:
		fmt.Fprintf(&b, "Talking to %s.", models[0].DisplayName())
	default:
		fmt.Fprintf(&b, "Prompts fan out to %d models; pick one reply per turn.", len(models))
	}
	b.WriteString("\n\n/help lists commands. ? shows the keys.")

	return m.theme.SystemNote.Render(b.String())
}

// rosterSlot maps a model id to its roster position, or -1.
func (m Model) rosterSlot(modelID string) int {
	for i, mc := range m.app.Models().Models() {
		if mc.ID == modelID {
			return i
		}
	}
	return -1
}

// =============================================================================
// RESPONSE PANES
// =============================================================================

// renderPanes lays the live turn's columns side by side, or stacked when
// the terminal is too narrow to give each one a readable measure.
func (m Model) renderPanes() string {
	if len(m.panes) == 0 {
		return ""
	}

	n := len(m.panes)
	outer := m.contentWidth() / n
	if outer < minPaneWidth && n > 1 {
		cols := make([]string, 0, n)
		for i, p := range m.panes {
			cols = append(cols, m.renderPane(p, i, m.contentWidth()-2))
		}
		return lipgloss.JoinVertical(lipgloss.Left, cols...)
	}

	cols := make([]string, 0, n)
	for i, p := range m.panes {
		cols = append(cols, m.renderPane(p, i, outer-2))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// renderPane renders one model's column. contentW is the width inside the
// border; the text itself wraps two cells narrower for the padding.
func (m Model) renderPane(p *Pane, index, contentW int) string {
	textW := contentW - 2
	if textW < 10 {
		textW = 10
	}

	title := m.theme.PaneTitleStyle(index).
		Render(fmt.Sprintf("%d · %s", index+1, p.Title))

	var body string
	switch p.status {
	case paneWaiting:
		body = m.spin.View() + m.theme.ThinkingText.Render(" waiting...")

	case paneStreaming:
		cursor := lipgloss.NewStyle().Foreground(styles.Purple).Blink(true).Render("_")
		body = tailLines(wrapText(p.Text(), textW), paneBodyLines) + cursor

	case paneDone:
		body = headLines(wrapText(p.Text(), textW), paneBodyLines, m.theme.PaneKeyHint)
		if p.response != nil && p.response.Usage != nil {
			u := p.response.Usage
			body += "\n" + m.theme.PaneUsage.Render(
				fmt.Sprintf("%d→%d tok", u.InputTokens, u.OutputTokens))
		}

	case paneFailed:
		body = m.theme.PaneError.Render(wrapText(p.friendly, textW))
	}

	return m.theme.PaneBorder(index, false).
		Width(contentW).
		Render(title + "\n" + body)
}

// wrapText wraps through lip gloss so ANSI sequences survive.
func wrapText(text string, width int) string {
	if text == "" {
		return ""
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// tailLines keeps the last max lines; streaming panes follow the tail.
func tailLines(text string, max int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}

// headLines keeps the first max lines and notes how much is hidden.
func headLines(text string, max int, hintStyle lipgloss.Style) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	hidden := len(lines) - max
	out := strings.Join(lines[:max], "\n")
	return out + "\n" + hintStyle.Render(fmt.Sprintf("… +%d lines", hidden))
}

// =============================================================================
// NOTICES AND INPUT
// =============================================================================

// renderNotice shows the error box when set, otherwise the latest command
// output. Tall notices are clipped so the input line never scrolls away.
func (m Model) renderNotice() string {
	if m.errBox != nil {
		box := *m.errBox
		box.SetWidth(m.contentWidth())
		return box.View()
	}
	if m.notice == "" {
		return ""
	}

	wrapped := m.theme.SystemNote.Width(m.contentWidth()).Render(m.notice)
	lines := strings.Split(wrapped, "\n")

	max := m.height - 10
	if max < 5 {
		max = 5
	}
	if len(lines) <= max {
		return wrapped
	}
	clipped := append(lines[:max], m.theme.ModelTag.Render("  … clipped, esc dismisses"))
	return strings.Join(clipped, "\n")
}

func (m Model) renderInput() string {
	line := m.input.View()

	// Character headroom only shows once it matters.
	if limit := m.input.CharLimit; limit > 0 {
		used := len(m.input.Value())
		if used > limit*9/10 {
			line += m.theme.CharCount.Render(fmt.Sprintf("  %d/%d", used, limit))
		}
	}

	return m.theme.InputContainer.Width(m.contentWidth()).Render(line)
}

// renderCompletion draws the suggestion menu under the prompt while tab
// cycling is active.
func (m Model) renderCompletion() string {
	if !m.completion.Visible || len(m.completion.Completions) == 0 {
		return ""
	}

	start := 0
	if m.completion.Selected >= completionPopupRows {
		start = m.completion.Selected - completionPopupRows + 1
	}
	end := start + completionPopupRows
	if end > len(m.completion.Completions) {
		end = len(m.completion.Completions)
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.completion.Completions[i]
		label := item.Display
		if label == "" {
			label = item.Value
		}

		line := fmt.Sprintf("%-18s", label)
		if item.Description != "" {
			line += " " + m.theme.CompletionDesc.Render(item.Description)
		}

		if i == m.completion.Selected {
			line = m.theme.CompletionSelected.Render(line)
		} else {
			line = m.theme.CompletionItem.Render(line)
		}
		rows = append(rows, line)
	}

	return m.theme.CompletionPopup.Render(strings.Join(rows, "\n"))
}
