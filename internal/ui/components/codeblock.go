// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// codeblock.go - syntax-highlighted code blocks for the transcript.

package components

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quorum/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK
// =============================================================================

// CodeBlock renders one fenced code region with syntax highlighting, line
// numbers, and a language badge.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a code block with the default width cap.
func NewCodeBlock(language, code string) *CodeBlock {
	return &CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// SetMaxWidth caps the rendered width. Returns the block for chaining.
func (c *CodeBlock) SetMaxWidth(width int) *CodeBlock {
	c.MaxWidth = width
	return c
}

// Render produces the framed, highlighted block. Empty code renders empty.
func (c *CodeBlock) Render() string {
	code := strings.TrimRight(strings.TrimLeft(c.Code, "\n"), " \t\n")
	if code == "" {
		return ""
	}

	language := c.Language
	if language == "" {
		language = DetectLanguage(code)
	}

	highlighted := highlightCode(code, language)

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	var body strings.Builder
	for i, line := range strings.Split(highlighted, "\n") {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(lineNumStyle.Render(strconv.Itoa(i + 1)))
		body.WriteString(line)
	}

	innerWidth := c.MaxWidth - 4
	if innerWidth < 20 {
		innerWidth = 20
	}

	blockStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(innerWidth)

	block := blockStyle.Render(body.String())

	if language == "" {
		return block
	}

	badge := lipgloss.NewStyle().
		Background(styles.OverlayDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Bold(true).
		Render(language)

	return badge + "\n" + block
}

// =============================================================================
// HIGHLIGHTING
// =============================================================================

// highlightCode runs chroma over the code. Falls back to the raw text when
// tokenizing or formatting fails, so a bad lexer never drops content.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// DetectLanguage guesses the language of a bare fence from its content.
// Returns "" when chroma cannot place it.
func DetectLanguage(code string) string {
	lexer := lexers.Analyse(code)
	if lexer == nil {
		return ""
	}
	name := lexer.Config().Name
	return strings.ToLower(name)
}

// =============================================================================
// FENCE PARSING
// =============================================================================

// Segment is one run of a message body: either prose or a fenced code block.
type Segment struct {
	Code     bool
	Language string
	Text     string
}

// ParseCodeBlocks splits message content on ``` fences. An unclosed fence
// swallows the rest of the content as code, which keeps a streaming response
// readable while the closing fence has not arrived yet.
func ParseCodeBlocks(content string) []Segment {
	var segments []Segment
	lines := strings.Split(content, "\n")

	var current strings.Builder
	inCode := false
	language := ""

	flush := func(code bool, lang string) {
		text := current.String()
		current.Reset()
		if strings.TrimSpace(text) == "" && !code {
			return
		}
		segments = append(segments, Segment{Code: code, Language: lang, Text: text})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flush(true, language)
				inCode = false
				language = ""
			} else {
				flush(false, "")
				inCode = true
				language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush(inCode, language)

	return segments
}

// RenderInlineCode styles `backtick` spans inside a prose line.
func RenderInlineCode(text string) string {
	if !strings.Contains(text, "`") {
		return text
	}

	inlineStyle := lipgloss.NewStyle().
		Background(styles.SurfaceBright).
		Foreground(styles.Amber)

	var out strings.Builder
	parts := strings.Split(text, "`")
	for i, part := range parts {
		switch {
		case i%2 == 1 && i < len(parts)-1:
			out.WriteString(inlineStyle.Render(part))
		case i%2 == 1:
			// Unpaired trailing backtick: put it back verbatim.
			out.WriteString("`")
			out.WriteString(part)
		default:
			out.WriteString(part)
		}
	}
	return out.String()
}
