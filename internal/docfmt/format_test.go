// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docfmt

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		docName string
		content string
		style   Style
		want    string
	}{
		{
			name:    "xml wraps with name attribute",
			docName: "a.txt",
			content: "hello",
			style:   StyleXML,
			want:    "<document name=\"a.txt\">\nhello\n</document>",
		},
		{
			name:    "markdown python hint",
			docName: "main.py",
			content: "print('hi')",
			style:   StyleMarkdown,
			want:    "```python main.py\nprint('hi')\n```",
		},
		{
			name:    "markdown unknown extension",
			docName: "notes.rst",
			content: "body",
			style:   StyleMarkdown,
			want:    "``` notes.rst\nbody\n```",
		},
		{
			name:    "markdown txt has empty hint",
			docName: "readme.txt",
			content: "body",
			style:   StyleMarkdown,
			want:    "``` readme.txt\nbody\n```",
		},
		{
			name:    "markdown extension case folded",
			docName: "Main.PY",
			content: "x = 1",
			style:   StyleMarkdown,
			want:    "```python Main.PY\nx = 1\n```",
		},
		{
			name:    "simple header",
			docName: "a.txt",
			content: "hello",
			style:   StyleSimple,
			want:    "--- a.txt ---\nhello\n",
		},
		{
			name:    "default heading",
			docName: "a.txt",
			content: "hello",
			style:   StyleDefault,
			want:    "# a.txt\nhello\n",
		},
		{
			name:    "unrecognized style renders as default",
			docName: "a.txt",
			content: "hello",
			style:   Style("fancy"),
			want:    "# a.txt\nhello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.docName, tt.content, tt.style)
			if got != tt.want {
				t.Errorf("Format(%q, %q, %q) = %q, want %q", tt.docName, tt.content, tt.style, got, tt.want)
			}
		})
	}
}

func TestFormatDeterministic(t *testing.T) {
	for _, style := range Styles() {
		a := Format("x.py", "content", style)
		b := Format("x.py", "content", style)
		if a != b {
			t.Errorf("Format not deterministic for style %q", style)
		}
	}
}

func TestFormatAll(t *testing.T) {
	docs := []Document{
		{Name: "a.txt", Content: "alpha"},
		{Name: "b.txt", Content: "beta"},
	}

	got := FormatAll("Use these files.", docs, StyleXML)
	want := "Use these files.\n\n" +
		"<document name=\"a.txt\">\nalpha\n</document>\n\n" +
		"<document name=\"b.txt\">\nbeta\n</document>"
	if got != want {
		t.Errorf("FormatAll = %q, want %q", got, want)
	}
}

func TestFormatAllEmpty(t *testing.T) {
	got := FormatAll("instructions", nil, StyleXML)
	if got != NoneSelected {
		t.Errorf("FormatAll with no documents = %q, want %q", got, NoneSelected)
	}
	if got == "" {
		t.Error("empty selection must yield the sentinel, not an empty string")
	}
}

func TestFormatAllEmptyInstructions(t *testing.T) {
	got := FormatAll("", []Document{{Name: "a.txt", Content: "x"}}, StyleSimple)
	if !strings.HasPrefix(got, "\n\n--- a.txt ---") {
		t.Errorf("FormatAll with empty instructions = %q, want blank lead-in before first document", got)
	}
}

func TestStyleValid(t *testing.T) {
	tests := []struct {
		style Style
		want  bool
	}{
		{StyleXML, true},
		{StyleMarkdown, true},
		{StyleSimple, true},
		{StyleDefault, true},
		{Style("yaml"), false},
		{Style(""), false},
	}

	for _, tt := range tests {
		if got := tt.style.Valid(); got != tt.want {
			t.Errorf("Style(%q).Valid() = %v, want %v", tt.style, got, tt.want)
		}
	}
}
