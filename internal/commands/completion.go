// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/quorum/internal/storage"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks set by the application for context-specific completions.
	ChatsFn func() []storage.ChatMeta    // Saved chats for /load
	FilesFn func(prefix string) []string // Document paths for /docs add
}

// NewCompleter creates a completer over the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the input at the cursor position.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos < len(input) {
		input = input[:cursorPos]
	}

	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name?
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	// Which argument is being completed, and its typed prefix.
	argIndex := len(parts) - 2
	partial := ""
	if strings.HasSuffix(input, " ") {
		argIndex++
	} else if len(parts) > 1 {
		partial = parts[len(parts)-1]
	}

	return c.completeArg(cmd, argIndex, partial)
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       matchScore(cmd.Name, partial),
			})
		}

		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					// Aliases rank below their primary name
					Score: matchScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	switch arg := cmd.Args[argIndex]; arg.Type {
	case ArgTypeEnum:
		return c.completeFromList(arg.Values, partial)
	case ArgTypeChat:
		return c.completeChats(partial)
	case ArgTypeFile:
		return c.completeFiles(partial)
	default:
		// Free strings and numbers have nothing to suggest
		return nil
	}
}

func (c *Completer) completeChats(partial string) []Completion {
	if c.ChatsFn == nil {
		return nil
	}

	var completions []Completion
	partial = strings.ToLower(partial)

	for _, meta := range c.ChatsFn() {
		if !strings.HasPrefix(strings.ToLower(meta.ID), partial) &&
			!strings.Contains(strings.ToLower(meta.Preview), partial) {
			continue
		}

		display := meta.ID
		if meta.Preview != "" {
			display = meta.ID + " - " + truncate(meta.Preview, 30)
		}
		completions = append(completions, Completion{
			Value:       meta.ID,
			Display:     display,
			Description: fmt.Sprintf("%d messages", meta.MessageCount),
			Score:       matchScore(meta.ID, partial),
		})
	}

	sortCompletions(completions)
	return completions
}

func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return c.completeFromList(c.FilesFn(partial), partial)
	}
	return c.localFileCompletion(partial)
}

// localFileCompletion walks the filesystem relative to the working
// directory. Used only when no documents-directory callback is wired.
func (c *Completer) localFileCompletion(partial string) []Completion {
	dir := filepath.Dir(partial)
	prefix := filepath.Base(partial)
	if partial == "" {
		dir, prefix = ".", ""
	} else if strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir, prefix = partial, ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var completions []Completion
	prefix = strings.ToLower(prefix)

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		score := matchScore(name, prefix)
		desc := ""
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
			desc = "directory"
		} else if info, err := entry.Info(); err == nil {
			desc = formatFileSize(info.Size())
		}

		completions = append(completions, Completion{
			Value:       path,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > 20 {
		completions = completions[:20]
	}
	return completions
}

func (c *Completer) completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   matchScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// RANKING
// =============================================================================

// matchScore ranks a candidate against the typed prefix. Higher is better;
// exact matches beat prefixes, shorter candidates beat longer ones.
func matchScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	return score - len(value)/2
}

func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func formatFileSize(size int64) string {
	const kb, mb, gb = 1 << 10, 1 << 20, 1 << 30
	switch {
	case size >= gb:
		return fmt.Sprintf("%.1f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.1f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.1f KB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the menu state while the user cycles suggestions.
type CompletionState struct {
	// OriginalInput before completion started
	OriginalInput string

	// Completions currently offered
	Completions []Completion

	// Selected index
	Selected int

	// Visible indicates if the menu should be shown
	Visible bool
}

// NewCompletionState creates an empty completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update replaces the suggestions, auto-selecting the first.
func (cs *CompletionState) Update(input string, completions []Completion) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next suggestion, wrapping.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous suggestion, wrapping.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Accept returns the selected value, or empty when nothing is offered.
func (cs *CompletionState) Accept() string {
	if cs.Selected >= 0 && cs.Selected < len(cs.Completions) {
		return cs.Completions[cs.Selected].Value
	}
	if len(cs.Completions) > 0 {
		return cs.Completions[0].Value
	}
	return ""
}

// Clear hides the menu and drops its suggestions.
func (cs *CompletionState) Clear() {
	cs.OriginalInput = ""
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}

// GetSelected returns the highlighted suggestion, or nil.
func (cs *CompletionState) GetSelected() *Completion {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return nil
	}
	return &cs.Completions[cs.Selected]
}
