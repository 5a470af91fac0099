// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docfmt renders selected documents into the context blob injected
// ahead of a conversation's first prompt. Rendering is pure: identical
// inputs always produce identical output, which lets the UI preview the
// exact text the models will receive.
package docfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Style selects how a document is wrapped.
type Style string

const (
	// StyleXML wraps content in a document tag carrying the file name.
	StyleXML Style = "xml"
	// StyleMarkdown wraps content in a fenced code block with a language
	// hint derived from the file extension.
	StyleMarkdown Style = "markdown"
	// StyleSimple emits a plain header line above the content.
	StyleSimple Style = "simple"
	// StyleDefault emits a markdown heading above the content. Any
	// unrecognized style renders this way.
	StyleDefault Style = "default"
)

// Valid reports whether s is one of the named styles.
func (s Style) Valid() bool {
	switch s {
	case StyleXML, StyleMarkdown, StyleSimple, StyleDefault:
		return true
	}
	return false
}

// Styles returns the named styles in display order.
func Styles() []Style {
	return []Style{StyleXML, StyleMarkdown, StyleSimple, StyleDefault}
}

// NoneSelected is returned by FormatAll when no documents are selected.
// Callers display it instead of sending an empty context.
const NoneSelected = "No documents selected."

// langHints maps file extensions to fence language hints. Unknown
// extensions get an empty hint.
var langHints = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".html": "html",
	".css":  "css",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".json": "json",
	".md":   "markdown",
	".sh":   "bash",
	".sql":  "sql",
	".txt":  "",
}

// Document is one (name, content) pair to render. Name is typically a
// relative file path.
type Document struct {
	Name    string
	Content string
}

// Format renders a single document under the given style.
func Format(name, content string, style Style) string {
	switch style {
	case StyleXML:
		return fmt.Sprintf("<document name=\"%s\">\n%s\n</document>", name, content)
	case StyleMarkdown:
		ext := strings.ToLower(filepath.Ext(name))
		return fmt.Sprintf("```%s %s\n%s\n```", langHints[ext], name, content)
	case StyleSimple:
		return fmt.Sprintf("--- %s ---\n%s\n", name, content)
	default:
		return fmt.Sprintf("# %s\n%s\n", name, content)
	}
}

// FormatAll renders instructions followed by every document, blank-line
// separated. An empty document list yields NoneSelected.
func FormatAll(instructions string, docs []Document, style Style) string {
	if len(docs) == 0 {
		return NoneSelected
	}

	parts := make([]string, 0, len(docs)+1)
	parts = append(parts, instructions)
	for _, d := range docs {
		parts = append(parts, Format(d.Name, d.Content, style))
	}
	return strings.Join(parts, "\n\n")
}
