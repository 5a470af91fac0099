// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"

	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/provider"
)

// =============================================================================
// COMMAND LINE PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
	}{
		{"no args starts the TUI", []string{}, CmdTUI},
		{"tui", []string{"tui"}, CmdTUI},
		{"chat", []string{"chat"}, CmdChat},
		{"repl alias", []string{"repl"}, CmdChat},
		{"models", []string{"models"}, CmdModels},
		{"model alias", []string{"model"}, CmdModels},
		{"index", []string{"index"}, CmdIndex},
		{"reindex alias", []string{"reindex"}, CmdIndex},
		{"search", []string{"search", "raft", "deep", "dive"}, CmdSearch},
		{"find alias", []string{"find", "raft"}, CmdSearch},
		{"chats", []string{"chats"}, CmdChats},
		{"config", []string{"config", "set", "system_prompt", "hi"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"--help"}, CmdHelp},
		{"unknown token falls back to the TUI", []string{"banana"}, CmdTUI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("parse(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
		})
	}
}

func TestParse_RawAndSubcommand(t *testing.T) {
	cmd, args := parse([]string{"config", "set", "system_prompt", "hi"})
	if cmd != CmdConfig {
		t.Fatalf("parse returned %v, want CmdConfig", cmd)
	}
	if args.Subcommand != "set" {
		t.Errorf("Subcommand = %q, want %q", args.Subcommand, "set")
	}
	if len(args.Raw) != 3 || args.Raw[0] != "set" {
		t.Errorf("Raw = %v, want [set system_prompt hi]", args.Raw)
	}
}

func TestParse_UnknownTokenKeptInRaw(t *testing.T) {
	cmd, args := parse([]string{"banana", "--watch"})
	if cmd != CmdTUI {
		t.Fatalf("parse returned %v, want CmdTUI", cmd)
	}
	if len(args.Raw) != 2 || args.Raw[0] != "banana" {
		t.Errorf("Raw = %v, want the unknown token preserved", args.Raw)
	}
	if args.Subcommand != "" {
		t.Errorf("Subcommand = %q, want empty", args.Subcommand)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	remaining, args := parseGlobalFlags([]string{
		"-q", "--model", "llama3:8b", "-m", "bedrock:anthropic.claude-3-5-haiku-20241022-v1:0",
		"--url=http://10.0.0.5:11434", "--region", "eu-west-1", "--docs", "./notes",
		"chat",
	})

	if !args.Quiet {
		t.Error("Quiet not set by -q")
	}
	if len(args.Models) != 2 {
		t.Fatalf("Models = %v, want 2 entries", args.Models)
	}
	if args.Models[0] != "llama3:8b" {
		t.Errorf("Models[0] = %q, want %q", args.Models[0], "llama3:8b")
	}
	if args.ServerURL != "http://10.0.0.5:11434" {
		t.Errorf("ServerURL = %q", args.ServerURL)
	}
	if args.Region != "eu-west-1" {
		t.Errorf("Region = %q, want eu-west-1", args.Region)
	}
	if args.DocsDir != "./notes" {
		t.Errorf("DocsDir = %q, want ./notes", args.DocsDir)
	}
	if len(remaining) != 1 || remaining[0] != "chat" {
		t.Errorf("remaining = %v, want [chat]", remaining)
	}
}

func TestSplitModelArg(t *testing.T) {
	tests := []struct {
		arg      string
		wantKind provider.Kind
		wantName string
	}{
		{"llama3:8b", provider.KindOllama, "llama3:8b"},
		{"gemma3:27b", provider.KindOllama, "gemma3:27b"},
		{"mistral", provider.KindOllama, "mistral"},
		{"ollama:qwen2.5:14b", provider.KindOllama, "qwen2.5:14b"},
		{"bedrock:anthropic.claude-3-5-sonnet-20241022-v2:0", provider.KindBedrock, "anthropic.claude-3-5-sonnet-20241022-v2:0"},
		{"anthropic.claude-3-5-sonnet-20241022-v2:0", provider.KindBedrock, "anthropic.claude-3-5-sonnet-20241022-v2:0"},
		{"meta.llama3-70b-instruct-v1:0", provider.KindBedrock, "meta.llama3-70b-instruct-v1:0"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			kind, name := SplitModelArg(tt.arg)
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
		})
	}
}

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantSubcommand string
		wantFlags      map[string]string
		wantPositional []string
	}{
		{
			name:           "subcommand with flag",
			args:           []string{"set", "--top", "10", "call_timeout_seconds"},
			wantSubcommand: "set",
			wantFlags:      map[string]string{"top": "10"},
			wantPositional: []string{"set", "call_timeout_seconds"},
		},
		{
			name:           "equals form",
			args:           []string{"get", "--format=json"},
			wantSubcommand: "get",
			wantFlags:      map[string]string{"format": "json"},
			wantPositional: []string{"get"},
		},
		{
			name:           "no args",
			args:           []string{},
			wantSubcommand: "",
			wantFlags:      map[string]string{},
			wantPositional: []string{},
		},
		{
			name:           "positionals only",
			args:           []string{"consensus", "algorithms"},
			wantSubcommand: "consensus",
			wantFlags:      map[string]string{},
			wantPositional: []string{"consensus", "algorithms"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)

			if got := p.Subcommand(); got != tt.wantSubcommand {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSubcommand)
			}
			for name, want := range tt.wantFlags {
				if got := p.Flag(name); got != want {
					t.Errorf("Flag(%q) = %q, want %q", name, got, want)
				}
			}
			if got := p.PositionalCount(); got != len(tt.wantPositional) {
				t.Fatalf("PositionalCount() = %d, want %d", got, len(tt.wantPositional))
			}
			for i, want := range tt.wantPositional {
				if got := p.Positional(i); got != want {
					t.Errorf("Positional(%d) = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestArgParser_BoolFlags(t *testing.T) {
	p := NewArgParser([]string{"--watch", "--rebuild=false", "--json=true"})

	if !p.BoolFlag("watch") {
		t.Error("BoolFlag(watch) = false, want true")
	}
	if p.BoolFlag("rebuild") {
		t.Error("BoolFlag(rebuild) = true, want false (explicit =false)")
	}
	if !p.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
	if p.BoolFlag("absent") {
		t.Error("BoolFlag(absent) = true, want false")
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--top", "7", "--bad", "seven"})

	if got := p.FlagIntOrDefault("top", 5); got != 7 {
		t.Errorf("FlagIntOrDefault(top) = %d, want 7", got)
	}
	if got := p.FlagIntOrDefault("bad", 5); got != 5 {
		t.Errorf("FlagIntOrDefault(bad) = %d, want the default 5", got)
	}
	if got := p.FlagIntOrDefault("absent", 3); got != 3 {
		t.Errorf("FlagIntOrDefault(absent) = %d, want the default 3", got)
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	p := NewArgParser([]string{"--top", "7", "--watch"})

	for _, name := range []string{"top", "--top", "watch"} {
		if !p.HasFlag(name) {
			t.Errorf("HasFlag(%q) = false, want true", name)
		}
	}
	if p.HasFlag("absent") {
		t.Error("HasFlag(absent) = true, want false")
	}
}

func TestParseBoolString(t *testing.T) {
	truthy := []string{"true", "TRUE", "yes", "y", "1", "on", " On "}
	for _, s := range truthy {
		got, err := ParseBoolString(s)
		if err != nil || !got {
			t.Errorf("ParseBoolString(%q) = %v, %v, want true", s, got, err)
		}
	}

	falsy := []string{"false", "no", "N", "0", "off"}
	for _, s := range falsy {
		got, err := ParseBoolString(s)
		if err != nil || got {
			t.Errorf("ParseBoolString(%q) = %v, %v, want false", s, got, err)
		}
	}

	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) accepted an invalid value")
	}
}

func TestJoinPositionalArgs(t *testing.T) {
	p := NewArgParser([]string{"raft", "leader", "election", "--top", "3"})

	if got := JoinPositionalArgs(p, 0); got != "raft leader election" {
		t.Errorf("JoinPositionalArgs(0) = %q", got)
	}
	if got := JoinPositionalArgs(p, 1); got != "leader election" {
		t.Errorf("JoinPositionalArgs(1) = %q", got)
	}
	if got := JoinPositionalArgs(p, 9); got != "" {
		t.Errorf("JoinPositionalArgs(9) = %q, want empty", got)
	}
}

// =============================================================================
// CONFIG KEY ADDRESSING
// =============================================================================

func TestSplitConfigKey(t *testing.T) {
	tests := []struct {
		dotted    string
		wantScope config.Scope
		wantKey   string
		wantErr   bool
	}{
		{"system_prompt", config.ScopeGlobal, "system_prompt", false},
		{"global.call_timeout_seconds", config.ScopeGlobal, "call_timeout_seconds", false},
		{"pages.documents.format", config.ScopePage("documents"), "format", false},
		{"providers.ollama.url", config.ScopeProvider("ollama"), "url", false},
		{"providers.bedrock.region", config.ScopeProvider("bedrock"), "region", false},
		{"", config.Scope{}, "", true},
		{"pages.documents", config.Scope{}, "", true},
		{"providers.ollama.url.extra", config.Scope{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dotted, func(t *testing.T) {
			scope, key, err := splitConfigKey(tt.dotted)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitConfigKey(%q) accepted a bad key", tt.dotted)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitConfigKey(%q) failed: %v", tt.dotted, err)
			}
			if scope != tt.wantScope {
				t.Errorf("scope = %v, want %v", scope, tt.wantScope)
			}
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"1", int64(1)},
		{"0.7", 0.7},
		{"true", true},
		{"off", false},
		{"hello world", "hello world"},
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseConfigValue(tt.raw); got != tt.want {
				t.Errorf("parseConfigValue(%q) = %v (%T), want %v (%T)", tt.raw, got, got, tt.want, tt.want)
			}
		})
	}
}

// =============================================================================
// USAGE TEXT
// =============================================================================

func TestUsageMentionsEveryCommand(t *testing.T) {
	for _, cmd := range []string{"chat", "models", "index", "search", "chats", "config", "version", "help"} {
		if !strings.Contains(usageText, cmd) {
			t.Errorf("usage text does not mention %q", cmd)
		}
	}
}
