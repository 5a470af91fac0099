// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/quorum/internal/docfmt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := LoadPath(filepath.Join(dir, "config.toml"), filepath.Join(dir, "templates"))
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	return s
}

func TestLoadPathCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	s, err := LoadPath(path, filepath.Join(dir, "templates"))
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written on first run: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file perm = %o, want 0600", perm)
	}

	if got := s.SystemPrompt(); got != DefaultSystemPrompt {
		t.Errorf("SystemPrompt = %q, want default", got)
	}
	if got := s.OllamaURL(); got != DefaultOllamaURL {
		t.Errorf("OllamaURL = %q, want %q", got, DefaultOllamaURL)
	}
	if got := s.BedrockRegion(); got != DefaultBedrockRegion {
		t.Errorf("BedrockRegion = %q, want %q", got, DefaultBedrockRegion)
	}
	if got := s.DocumentFormat("documents"); got != docfmt.StyleXML {
		t.Errorf("DocumentFormat = %q, want xml", got)
	}
	if got := s.ProviderMaxTokens("ollama"); got != DefaultMaxTokens {
		t.Errorf("ProviderMaxTokens = %d, want %d", got, DefaultMaxTokens)
	}
	if got := s.ProviderTemperature("bedrock"); got != DefaultTemperature {
		t.Errorf("ProviderTemperature = %v, want %v", got, DefaultTemperature)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	templates := filepath.Join(dir, "templates")

	s, err := LoadPath(path, templates)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}

	s.Set(ScopeGlobal, "system_prompt", "Answer briefly.")
	s.Set(ScopePage("search"), "results_count", int64(25))
	s.Set(ScopeProvider("ollama"), "url", "http://10.0.0.5:11434")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadPath(path, templates)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if got := loaded.SystemPrompt(); got != "Answer briefly." {
		t.Errorf("SystemPrompt = %q after reload", got)
	}
	if got := loaded.GetInt(ScopePage("search"), "results_count", 0); got != 25 {
		t.Errorf("results_count = %d after reload, want 25", got)
	}
	if got := loaded.OllamaURL(); got != "http://10.0.0.5:11434" {
		t.Errorf("OllamaURL = %q after reload", got)
	}
}

func TestLoadPathMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[global\nbroken"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadPath(path, filepath.Join(dir, "templates")); err == nil {
		t.Fatal("LoadPath must reject a malformed config instead of replacing it")
	}
}

func TestScopedGetSet(t *testing.T) {
	s := newTestStore(t)

	s.Set(ScopePage("chat"), "wrap_width", int64(100))
	if got := s.GetInt(ScopePage("chat"), "wrap_width", 0); got != 100 {
		t.Errorf("page value = %d, want 100", got)
	}

	if _, ok := s.Get(ScopePage("nonexistent"), "anything"); ok {
		t.Error("Get on a missing page must report absence")
	}
	if _, ok := s.Get(ScopeProvider("nonexistent"), "anything"); ok {
		t.Error("Get on a missing provider must report absence")
	}

	// Scopes with the same name do not collide across kinds.
	s.Set(ScopePage("ollama"), "key", "page-value")
	if got := s.GetString(ScopeProvider("ollama"), "key", "absent"); got != "absent" {
		t.Errorf("provider scope leaked page value: %q", got)
	}
}

func TestGetPageWithFallback(t *testing.T) {
	s := newTestStore(t)
	s.Set(ScopePage("documents"), "format", "markdown")

	// Search page has no format of its own: documents page wins.
	if got := s.GetPageWithFallback("search", "format", "documents", "format", "xml"); got != "markdown" {
		t.Errorf("fallback value = %v, want markdown", got)
	}

	// The page's own value wins over the fallback.
	s.Set(ScopePage("search"), "format", "simple")
	if got := s.GetPageWithFallback("search", "format", "documents", "format", "xml"); got != "simple" {
		t.Errorf("own value = %v, want simple", got)
	}

	// Empty fallback page skips straight to the default.
	if got := s.GetPageWithFallback("search", "recursive", "", "", false); got != false {
		t.Errorf("default value = %v, want false", got)
	}
}

func TestTypedGetters(t *testing.T) {
	s := newTestStore(t)
	scope := ScopePage("test")

	s.Set(scope, "int64", int64(42))
	s.Set(scope, "float", 1.5)
	s.Set(scope, "bool", true)
	s.Set(scope, "string", "value")
	s.Set(scope, "list", []any{"a", "b"})

	if got := s.GetInt(scope, "int64", 0); got != 42 {
		t.Errorf("GetInt = %d, want 42", got)
	}
	if got := s.GetInt(scope, "float", 0); got != 1 {
		t.Errorf("GetInt from float = %d, want 1", got)
	}
	if got := s.GetFloat(scope, "int64", 0); got != 42 {
		t.Errorf("GetFloat from int = %v, want 42", got)
	}
	if got := s.GetBool(scope, "bool", false); !got {
		t.Error("GetBool = false, want true")
	}
	if got := s.GetString(scope, "string", ""); got != "value" {
		t.Errorf("GetString = %q, want value", got)
	}
	if got := s.GetStringSlice(scope, "list"); len(got) != 2 || got[0] != "a" {
		t.Errorf("GetStringSlice = %v, want [a b]", got)
	}

	// Mismatched types fall back to the default.
	if got := s.GetInt(scope, "string", 7); got != 7 {
		t.Errorf("GetInt on string = %d, want default 7", got)
	}
	if got := s.GetString(scope, "int64", "fallback"); got != "fallback" {
		t.Errorf("GetString on int = %q, want default", got)
	}
}

func TestDocumentFormat(t *testing.T) {
	s := newTestStore(t)

	if got := s.DocumentFormat("search"); got != docfmt.StyleXML {
		t.Errorf("DocumentFormat with defaults = %q, want xml", got)
	}

	s.Set(ScopePage("documents"), "format", "markdown")
	if got := s.DocumentFormat("search"); got != docfmt.StyleMarkdown {
		t.Errorf("DocumentFormat fallback = %q, want markdown", got)
	}

	s.Set(ScopePage("search"), "format", "simple")
	if got := s.DocumentFormat("search"); got != docfmt.StyleSimple {
		t.Errorf("DocumentFormat own = %q, want simple", got)
	}

	// A corrupt style never escapes the accessor.
	s.Set(ScopePage("search"), "format", "yaml")
	if got := s.DocumentFormat("search"); got != docfmt.StyleXML {
		t.Errorf("DocumentFormat invalid = %q, want xml", got)
	}
}

func TestChatsDir(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadPath(filepath.Join(dir, "config.toml"), filepath.Join(dir, "templates"))
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}

	if got, want := s.ChatsDir(), filepath.Join(dir, "chats"); got != want {
		t.Errorf("ChatsDir = %q, want %q beside the config file", got, want)
	}

	s.Set(ScopeGlobal, "base_directories", map[string]any{"saved_chats": "/srv/chats"})
	if got := s.ChatsDir(); got != "/srv/chats" {
		t.Errorf("ChatsDir = %q, want configured /srv/chats", got)
	}
}

func TestCallTimeout(t *testing.T) {
	s := newTestStore(t)

	if got := s.CallTimeout(); got != DefaultCallTimeoutSeconds*time.Second {
		t.Errorf("CallTimeout = %v, want default", got)
	}

	s.Set(ScopeGlobal, "call_timeout_seconds", int64(30))
	if got := s.CallTimeout(); got != 30*time.Second {
		t.Errorf("CallTimeout = %v, want 30s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Store)
		field string
	}{
		{
			name:  "bad temperature",
			setup: func(s *Store) { s.Set(ScopeProvider("ollama"), "default_temperature", 3.5) },
			field: "providers.ollama.default_temperature",
		},
		{
			name:  "bad max tokens",
			setup: func(s *Store) { s.Set(ScopeProvider("bedrock"), "default_max_tokens", int64(-1)) },
			field: "providers.bedrock.default_max_tokens",
		},
		{
			name:  "bad url",
			setup: func(s *Store) { s.Set(ScopeProvider("ollama"), "url", "ftp://nope") },
			field: "providers.ollama.url",
		},
		{
			name:  "bad format",
			setup: func(s *Store) { s.Set(ScopePage("documents"), "format", "yaml") },
			field: "pages.documents.format",
		},
		{
			name:  "bad timeout",
			setup: func(s *Store) { s.Set(ScopeGlobal, "call_timeout_seconds", int64(-5)) },
			field: "global.call_timeout_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			tt.setup(s)

			err := s.Validate()
			if err == nil {
				t.Fatal("Validate must reject the configuration")
			}

			var errs ValidateErrors
			if !errors.As(err, &errs) {
				t.Fatalf("error type %T, want ValidateErrors", err)
			}
			if !strings.Contains(errs.Error(), tt.field) {
				t.Errorf("error %q does not name field %s", errs.Error(), tt.field)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	s := newTestStore(t)
	if err := s.Validate(); err != nil {
		t.Errorf("default configuration must validate, got: %v", err)
	}
}

func TestTemplates(t *testing.T) {
	s := newTestStore(t)

	s.Set(ScopeProvider("ollama"), "url", "http://templated:11434")
	s.Set(ScopeGlobal, "system_prompt", "Template prompt.")
	if err := s.SaveTemplate("workbench", "test template"); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	templates, err := s.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("ListTemplates returned %d templates, want 1", len(templates))
	}
	if templates[0].Name != "workbench" {
		t.Errorf("template name = %q, want workbench", templates[0].Name)
	}
	if templates[0].Description != "test template" {
		t.Errorf("template description = %q", templates[0].Description)
	}
	if templates[0].CreatedAt == "" {
		t.Error("template created_at missing")
	}

	// Drift the live config, then merge the template back over it.
	s.Set(ScopeGlobal, "system_prompt", "Drifted.")
	s.Set(ScopeGlobal, "call_timeout_seconds", int64(60))
	if err := s.LoadTemplate("workbench"); err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}

	if got := s.SystemPrompt(); got != "Template prompt." {
		t.Errorf("SystemPrompt after template = %q", got)
	}
	if got := s.OllamaURL(); got != "http://templated:11434" {
		t.Errorf("OllamaURL after template = %q", got)
	}
	// The template snapshot holds the default timeout, which overrides
	// the 60s set after it was saved.
	if got := s.CallTimeout(); got != DefaultCallTimeoutSeconds*time.Second {
		t.Errorf("CallTimeout after template = %v, want template value", got)
	}

	// Template metadata never leaks into the merged configuration.
	if _, ok := s.data["_metadata"]; ok {
		t.Error("_metadata must not merge into live config")
	}
}

func TestLoadTemplateNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.LoadTemplate("missing")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestTemplateNameValidation(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "../escape", "a/b", "x/../y"} {
		if err := s.SaveTemplate(name, ""); err == nil {
			t.Errorf("SaveTemplate(%q) must reject the name", name)
		}
	}
}

func TestIgnoreSet(t *testing.T) {
	s := newTestStore(t)

	set := s.IgnoreSet()
	for _, dir := range []string{".git", "node_modules", "__pycache__"} {
		if !set[dir] {
			t.Errorf("IgnoreSet missing %q", dir)
		}
	}

	s.Set(ScopeGlobal, "ignored_directories", []any{"private"})
	set = s.IgnoreSet()
	if !set["private"] || set[".git"] {
		t.Errorf("IgnoreSet = %v, want exactly the configured list", set)
	}
}

func TestDefaultModels(t *testing.T) {
	s := newTestStore(t)

	if got := s.DefaultModels(); len(got) != 0 {
		t.Errorf("DefaultModels on a fresh store = %v, want empty", got)
	}

	s.Set(ScopeGlobal, "default_models", []any{"llama3.2", "bedrock:claude-sonnet"})
	got := s.DefaultModels()
	want := []string{"llama3.2", "bedrock:claude-sonnet"}
	if len(got) != len(want) {
		t.Fatalf("DefaultModels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DefaultModels[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// config set stores a plain string; comma-separated entries still
	// come back as a list.
	s.Set(ScopeGlobal, "default_models", "llama3.2, gemma3:4b")
	got = s.DefaultModels()
	if len(got) != 2 || got[0] != "llama3.2" || got[1] != "gemma3:4b" {
		t.Errorf("DefaultModels from comma string = %v, want [llama3.2 gemma3:4b]", got)
	}
}
