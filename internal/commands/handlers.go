// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quorum/internal/docfmt"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Handlers emit these messages; the interface layer applies them to the
// application state.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct {
	Topic string // Optional category
}

// RetryTurnMsg re-runs the last prompt against the roster.
type RetryTurnMsg struct{}

// SelectResponseMsg picks one response of the current turn.
type SelectResponseMsg struct {
	Offset int // Zero-based position within the turn's responses
}

// SaveChatMsg saves the current chat.
type SaveChatMsg struct {
	Name string // Optional name; empty derives the ID from the timestamp
}

// LoadChatMsg loads a saved chat.
type LoadChatMsg struct {
	Ref string // Chat ID or numeric list position
}

// ListChatsMsg shows the saved chat list.
type ListChatsMsg struct{}

// ResetChatMsg clears the conversation and usage counters.
type ResetChatMsg struct{}

// ShowModelsMsg shows the model roster.
type ShowModelsMsg struct{}

// ShowDocsMsg shows the selected documents.
type ShowDocsMsg struct{}

// AddDocumentMsg adds a file from the documents directory to the context.
type AddDocumentMsg struct {
	Path string
}

// RemovePickMsg removes one selected document.
type RemovePickMsg struct {
	Index int // Zero-based position in the pick list
}

// ClearPicksMsg removes all selected documents.
type ClearPicksMsg struct{}

// ShowFormatsMsg shows the active and available document formats.
type ShowFormatsMsg struct{}

// SetFormatMsg switches the document context format.
type SetFormatMsg struct {
	Style docfmt.Style
}

// ShowStatsMsg shows per-model usage statistics.
type ShowStatsMsg struct{}

// SearchQueryMsg runs a document index query.
type SearchQueryMsg struct {
	Query string
}

// ErrorMsg reports a command error to the user.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// SystemMessageMsg adds an informational line to the transcript.
type SystemMessageMsg struct {
	Content string
}

// =============================================================================
// HANDLERS
// =============================================================================

// Handlers execute on the UI loop when a parsed command is dispatched.
// Validation happens here, synchronously; the returned tea.Cmd only emits
// the already-validated message.

// HandleHelp shows help, optionally for one category.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = strings.ToLower(args[0])
	}
	return emit(ShowHelpMsg{Topic: topic})
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// HandleRetry re-runs the last prompt.
func HandleRetry(ctx *Context, args []string) tea.Cmd {
	return emit(RetryTurnMsg{})
}

// HandleSelect picks response n of the current turn. n is 1-based, matching
// the numbering shown on the response panes.
func HandleSelect(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return errCmd("Select", "Response number required.", "Usage: /select <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return errCmd("Select", fmt.Sprintf("%q is not a response number.", args[0]), "Usage: /select <n>")
	}
	if ctx != nil && ctx.App != nil {
		if live := ctx.App.History().LiveRun(); n > len(live) {
			return errCmd("Select", fmt.Sprintf("This turn has %d responses.", len(live)), "")
		}
	}
	return emit(SelectResponseMsg{Offset: n - 1})
}

// HandleSave saves the current chat, optionally under a name.
func HandleSave(ctx *Context, args []string) tea.Cmd {
	return emit(SaveChatMsg{Name: strings.Join(args, " ")})
}

// HandleLoad loads a saved chat. Without an argument it falls back to
// listing the chats, so /load is self-explaining.
func HandleLoad(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return emit(ListChatsMsg{})
	}
	return emit(LoadChatMsg{Ref: args[0]})
}

// HandleChats lists saved chats.
func HandleChats(ctx *Context, args []string) tea.Cmd {
	return emit(ListChatsMsg{})
}

// HandleReset clears the conversation.
func HandleReset(ctx *Context, args []string) tea.Cmd {
	return emit(ResetChatMsg{})
}

// HandleModels shows the model roster.
func HandleModels(ctx *Context, args []string) tea.Cmd {
	return emit(ShowModelsMsg{})
}

// HandleDocs shows or edits the document selection.
func HandleDocs(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return emit(ShowDocsMsg{})
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 2 {
			return errCmd("Documents", "Path required.", "Usage: /docs add <path>")
		}
		return emit(AddDocumentMsg{Path: args[1]})

	case "remove":
		if len(args) < 2 {
			return errCmd("Documents", "Document number required.", "Usage: /docs remove <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return errCmd("Documents", fmt.Sprintf("%q is not a document number.", args[1]), "Usage: /docs remove <n>")
		}
		if ctx != nil && ctx.App != nil && n > ctx.App.Picks().Len() {
			return errCmd("Documents", fmt.Sprintf("%d documents are selected.", ctx.App.Picks().Len()), "")
		}
		return emit(RemovePickMsg{Index: n - 1})

	case "clear":
		return emit(ClearPicksMsg{})

	default:
		return errCmd("Documents", fmt.Sprintf("Unknown action %q.", args[0]), "Usage: /docs [add <path> | remove <n> | clear]")
	}
}

// HandleFormat shows or switches the document context format.
func HandleFormat(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return emit(ShowFormatsMsg{})
	}
	style := docfmt.Style(strings.ToLower(args[0]))
	if !style.Valid() {
		return errCmd("Format", fmt.Sprintf("Unknown style %q.", args[0]), "Styles: "+styleList())
	}
	return emit(SetFormatMsg{Style: style})
}

// HandleStats shows per-model usage statistics.
func HandleStats(ctx *Context, args []string) tea.Cmd {
	return emit(ShowStatsMsg{})
}

// HandleSearch queries the document index.
func HandleSearch(ctx *Context, args []string) tea.Cmd {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errCmd("Search", "Query required.", "Usage: /search <query>")
	}
	return emit(SearchQueryMsg{Query: query})
}

// =============================================================================
// HELPERS
// =============================================================================

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func errCmd(title, message, tip string) tea.Cmd {
	return emit(ErrorMsg{Title: title, Message: message, Tip: tip})
}

func styleList() string {
	styles := docfmt.Styles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
