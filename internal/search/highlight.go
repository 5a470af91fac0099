// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ExcerptLength is the default display truncation for result content.
const ExcerptLength = 500

// Excerpt truncates content to max runes, appending an ellipsis when it
// was cut.
func Excerpt(content string, max int) string {
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	return string([]rune(content)[:max]) + "..."
}

// Highlight wraps occurrences of each query term in markdown bold
// markers. Terms of one or two characters are skipped so articles and
// stray letters don't pepper the text.
func Highlight(content, query string) string {
	for _, term := range strings.Fields(query) {
		if utf8.RuneCountInString(term) <= 2 {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		content = re.ReplaceAllLiteralString(content, "**"+term+"**")
	}
	return content
}
