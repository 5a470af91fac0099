// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"testing"

	"github.com/jeranaias/quorum/internal/docfmt"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"/load 0", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}

	for _, tc := range tests {
		got := IsCommand(tc.input)
		if got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/help"},
		{"/load 0", "/load"},
		{"/save my-chat", "/save"},
		{"  /help  ", "/help"},
		{"hello", ""},
		{"/", "/"},
	}

	for _, tc := range tests {
		got := ExtractCommandName(tc.input)
		if got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/help", []string{"/help"}},
		{"/load 0", []string{"/load", "0"}},
		{`/save "my chat"`, []string{"/save", "my chat"}},
		{`/save 'my chat'`, []string{"/save", "my chat"}},
		{"/docs add notes.md", []string{"/docs", "add", "notes.md"}},
		{`/docs add "file with spaces.md"`, []string{"/docs", "add", "file with spaces.md"}},
		{`/save "escaped \" quote"`, []string{"/save", `escaped " quote`}},
		{"", nil},
		{"   ", nil},
	}

	for _, tc := range tests {
		got := ParseArgs(tc.input)
		if len(got) != len(tc.want) {
			t.Errorf("ParseArgs(%q) = %v, want %v", tc.input, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ParseArgs(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParserParse(t *testing.T) {
	p := NewParser(NewRegistry())

	result := p.Parse("/load chat_20250101_090000")
	if !result.IsCommand {
		t.Fatal("Expected a command")
	}
	if result.Command == nil || result.Command.Name != "/load" {
		t.Fatalf("Parse matched %+v, want /load", result.Command)
	}
	if len(result.Args) != 1 || result.Args[0] != "chat_20250101_090000" {
		t.Errorf("Args = %v", result.Args)
	}
	if result.RawArgs != "chat_20250101_090000" {
		t.Errorf("RawArgs = %q", result.RawArgs)
	}
}

func TestParserParseAlias(t *testing.T) {
	p := NewParser(NewRegistry())

	result := p.Parse("/c")
	if result.Command == nil || result.Command.Name != "/reset" {
		t.Errorf("Alias /c should resolve to /reset, got %+v", result.Command)
	}
}

func TestParserParseUnknown(t *testing.T) {
	p := NewParser(NewRegistry())

	result := p.Parse("/bogus")
	if !result.IsCommand {
		t.Error("Input starting with / is a command even when unknown")
	}
	if result.Command != nil {
		t.Errorf("Unknown command matched %+v", result.Command)
	}
	if result.CommandName != "/bogus" {
		t.Errorf("CommandName = %q", result.CommandName)
	}
}

func TestParserParsePlainText(t *testing.T) {
	p := NewParser(NewRegistry())

	result := p.Parse("what is a goroutine?")
	if result.IsCommand {
		t.Error("Plain text is not a command")
	}
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{
		"/help", "/quit", "/retry", "/select", "/save", "/load",
		"/chats", "/reset", "/models", "/docs", "/format", "/stats", "/search",
	} {
		if r.Get(name) == nil {
			t.Errorf("Built-in %s is not registered", name)
		}
	}
}

func TestRegistryAliases(t *testing.T) {
	r := NewRegistry()

	aliases := map[string]string{
		"/h":     "/help",
		"/q":     "/quit",
		"/r":     "/retry",
		"/s":     "/save",
		"/l":     "/load",
		"/list":  "/chats",
		"/clear": "/reset",
		"/m":     "/models",
		"/usage": "/stats",
		"/find":  "/search",
		"/f":     "/format",
		"/d":     "/docs",
	}

	for alias, want := range aliases {
		cmd := r.Get(alias)
		if cmd == nil {
			t.Errorf("Alias %s is not registered", alias)
			continue
		}
		if cmd.Name != want {
			t.Errorf("Alias %s resolves to %s, want %s", alias, cmd.Name, want)
		}
	}
}

func TestRegistryByCategory(t *testing.T) {
	r := NewRegistry()

	groups := r.ByCategory()
	for _, category := range []string{"Navigation", "Conversation", "Models", "Documents"} {
		if len(groups[category]) == 0 {
			t.Errorf("No commands in category %s", category)
		}
	}
}

func TestValidateArgs(t *testing.T) {
	r := NewRegistry()

	load := r.Get("/load")
	if err := ValidateArgs(load, nil); err == nil {
		t.Error("Missing required argument should fail validation")
	}
	if err := ValidateArgs(load, []string{"chat_x"}); err != nil {
		t.Errorf("Valid args failed: %v", err)
	}

	format := r.Get("/format")
	if err := ValidateArgs(format, []string{"yaml"}); err == nil {
		t.Error("Invalid enum value should fail validation")
	}
	if err := ValidateArgs(format, []string{"XML"}); err != nil {
		t.Errorf("Enum match is case-insensitive, got %v", err)
	}
	if err := ValidateArgs(format, nil); err != nil {
		t.Errorf("Optional argument may be absent, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Command:  "/load",
		Arg:      "id",
		Message:  "required argument missing",
		Expected: "Chat ID or list position",
	}
	msg := err.Error()
	for _, part := range []string{"/load", "id", "required argument missing"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error message %q missing %q", msg, part)
		}
	}
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestHandleSelect(t *testing.T) {
	msg := HandleSelect(nil, []string{"2"})()
	sel, ok := msg.(SelectResponseMsg)
	if !ok {
		t.Fatalf("Got %T, want SelectResponseMsg", msg)
	}
	if sel.Offset != 1 {
		t.Errorf("Offset = %d, want 1 (1-based input)", sel.Offset)
	}

	for _, args := range [][]string{nil, {"abc"}, {"0"}, {"-1"}} {
		if _, ok := HandleSelect(nil, args)().(ErrorMsg); !ok {
			t.Errorf("HandleSelect(%v) should produce an ErrorMsg", args)
		}
	}
}

func TestHandleSave(t *testing.T) {
	msg := HandleSave(nil, []string{"api", "design", "review"})()
	save, ok := msg.(SaveChatMsg)
	if !ok {
		t.Fatalf("Got %T, want SaveChatMsg", msg)
	}
	if save.Name != "api design review" {
		t.Errorf("Name = %q", save.Name)
	}

	if msg := HandleSave(nil, nil)(); msg.(SaveChatMsg).Name != "" {
		t.Error("Save without args has an empty name")
	}
}

func TestHandleLoad(t *testing.T) {
	msg := HandleLoad(nil, []string{"0"})()
	if load, ok := msg.(LoadChatMsg); !ok || load.Ref != "0" {
		t.Errorf("Got %#v, want LoadChatMsg{Ref: \"0\"}", msg)
	}

	// Without an argument /load lists the chats instead.
	if _, ok := HandleLoad(nil, nil)().(ListChatsMsg); !ok {
		t.Error("Load without args should list chats")
	}
}

func TestHandleDocs(t *testing.T) {
	if _, ok := HandleDocs(nil, nil)().(ShowDocsMsg); !ok {
		t.Error("Docs without args should show the selection")
	}

	msg := HandleDocs(nil, []string{"add", "notes/api.md"})()
	if add, ok := msg.(AddDocumentMsg); !ok || add.Path != "notes/api.md" {
		t.Errorf("Got %#v, want AddDocumentMsg{Path: \"notes/api.md\"}", msg)
	}

	msg = HandleDocs(nil, []string{"remove", "3"})()
	if rm, ok := msg.(RemovePickMsg); !ok || rm.Index != 2 {
		t.Errorf("Got %#v, want RemovePickMsg{Index: 2}", msg)
	}

	if _, ok := HandleDocs(nil, []string{"clear"})().(ClearPicksMsg); !ok {
		t.Error("docs clear should clear picks")
	}

	for _, args := range [][]string{{"add"}, {"remove"}, {"remove", "zero"}, {"frobnicate"}} {
		if _, ok := HandleDocs(nil, args)().(ErrorMsg); !ok {
			t.Errorf("HandleDocs(%v) should produce an ErrorMsg", args)
		}
	}
}

func TestHandleFormat(t *testing.T) {
	if _, ok := HandleFormat(nil, nil)().(ShowFormatsMsg); !ok {
		t.Error("Format without args should show the styles")
	}

	msg := HandleFormat(nil, []string{"MARKDOWN"})()
	if set, ok := msg.(SetFormatMsg); !ok || set.Style != docfmt.StyleMarkdown {
		t.Errorf("Got %#v, want SetFormatMsg{markdown}", msg)
	}

	errMsg, ok := HandleFormat(nil, []string{"yaml"})().(ErrorMsg)
	if !ok {
		t.Fatal("Unknown style should produce an ErrorMsg")
	}
	if !strings.Contains(errMsg.Tip, "xml") {
		t.Errorf("Error tip should list styles, got %q", errMsg.Tip)
	}
}

func TestHandleSearch(t *testing.T) {
	msg := HandleSearch(nil, []string{"error", "handling"})()
	if q, ok := msg.(SearchQueryMsg); !ok || q.Query != "error handling" {
		t.Errorf("Got %#v, want SearchQueryMsg{\"error handling\"}", msg)
	}

	if _, ok := HandleSearch(nil, nil)().(ErrorMsg); !ok {
		t.Error("Empty search should produce an ErrorMsg")
	}
}

func TestHandleHelp(t *testing.T) {
	msg := HandleHelp(nil, []string{"Documents"})()
	if help, ok := msg.(ShowHelpMsg); !ok || help.Topic != "documents" {
		t.Errorf("Got %#v, want lowercased topic", msg)
	}
}

func TestSimpleHandlers(t *testing.T) {
	if _, ok := HandleRetry(nil, nil)().(RetryTurnMsg); !ok {
		t.Error("HandleRetry should emit RetryTurnMsg")
	}
	if _, ok := HandleReset(nil, nil)().(ResetChatMsg); !ok {
		t.Error("HandleReset should emit ResetChatMsg")
	}
	if _, ok := HandleModels(nil, nil)().(ShowModelsMsg); !ok {
		t.Error("HandleModels should emit ShowModelsMsg")
	}
	if _, ok := HandleStats(nil, nil)().(ShowStatsMsg); !ok {
		t.Error("HandleStats should emit ShowStatsMsg")
	}
	if _, ok := HandleChats(nil, nil)().(ListChatsMsg); !ok {
		t.Error("HandleChats should emit ListChatsMsg")
	}
	if HandleQuit(nil, nil) == nil {
		t.Error("HandleQuit should return a command")
	}
}
