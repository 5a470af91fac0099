// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/quorum/internal/docfmt"
	"github.com/jeranaias/quorum/internal/util"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultSystemPrompt seeds new configurations.
	DefaultSystemPrompt = "You are a helpful AI assistant."

	// DefaultOllamaURL is the local Ollama endpoint.
	DefaultOllamaURL = "http://127.0.0.1:11434"

	// DefaultBedrockRegion is used when no region is configured.
	DefaultBedrockRegion = "us-east-1"

	// DefaultMaxTokens caps a single model response.
	DefaultMaxTokens = 4000

	// DefaultTemperature is the sampling temperature for new models.
	DefaultTemperature = 0.7

	// DefaultCallTimeoutSeconds bounds one model call within a turn.
	DefaultCallTimeoutSeconds = 300
)

// defaultIgnoredDirs are pruned when listing or watching document trees.
var defaultIgnoredDirs = []string{".git", "node_modules", "__pycache__", ".venv", "venv"}

func defaultData() map[string]any {
	ignored := make([]any, len(defaultIgnoredDirs))
	for i, d := range defaultIgnoredDirs {
		ignored[i] = d
	}

	return map[string]any{
		"global": map[string]any{
			"system_prompt":        DefaultSystemPrompt,
			"default_models":       []any{},
			"ignored_directories":  ignored,
			"call_timeout_seconds": int64(DefaultCallTimeoutSeconds),
			"base_directories": map[string]any{
				"documents":   "./data/documents",
				"search":      "./data/search",
				"saved_chats": "",
			},
		},
		"pages": map[string]any{
			"documents": map[string]any{
				"format":       string(docfmt.StyleXML),
				"instructions": "",
			},
		},
		"providers": map[string]any{
			"ollama": map[string]any{
				"url":                 DefaultOllamaURL,
				"default_max_tokens":  int64(DefaultMaxTokens),
				"default_temperature": DefaultTemperature,
			},
			"bedrock": map[string]any{
				"region":              DefaultBedrockRegion,
				"default_max_tokens":  int64(DefaultMaxTokens),
				"default_temperature": DefaultTemperature,
			},
		},
	}
}

// =============================================================================
// SCOPES
// =============================================================================

// Scope addresses one configuration table.
type Scope struct {
	kind string
	name string
}

// ScopeGlobal addresses the [global] table.
var ScopeGlobal = Scope{kind: "global"}

// ScopePage addresses a [pages.<name>] table.
func ScopePage(name string) Scope { return Scope{kind: "pages", name: name} }

// ScopeProvider addresses a [providers.<name>] table.
func ScopeProvider(name string) Scope { return Scope{kind: "providers", name: name} }

func (s Scope) String() string {
	if s.name == "" {
		return s.kind
	}
	return s.kind + "." + s.name
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the quorum configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quorum"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// TemplatesDir returns the directory holding named config templates.
func TemplatesDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "templates"), nil
}

// expandHome resolves a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// =============================================================================
// STORE
// =============================================================================

// Store is the loaded configuration. All methods are safe for concurrent
// use; mutations stay in memory until Save.
type Store struct {
	mu           sync.RWMutex
	path         string
	templatesDir string
	data         map[string]any
}

// Load reads the configuration from the default location, creating it
// with defaults on first run.
func Load() (*Store, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	templates, err := TemplatesDir()
	if err != nil {
		return nil, err
	}
	return LoadPath(path, templates)
}

// LoadPath reads the configuration from an explicit file path. A missing
// file initializes defaults and writes them; a malformed file is an
// error rather than silently replaced.
func LoadPath(path, templatesDir string) (*Store, error) {
	s := &Store{
		path:         path,
		templatesDir: templatesDir,
		data:         defaultData(),
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var data map[string]any
	if _, err := toml.DecodeFile(path, &data); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	ensureScopes(data)
	s.data = data

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// ensureScopes guarantees the three top-level tables exist.
func ensureScopes(data map[string]any) {
	for _, kind := range []string{"global", "pages", "providers"} {
		if _, ok := data[kind].(map[string]any); !ok {
			data[kind] = map[string]any{}
		}
	}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Save writes the configuration atomically with 0600 permissions.
func (s *Store) Save() error {
	s.mu.RLock()
	data := s.data
	var buf bytes.Buffer
	buf.WriteString("# quorum configuration file\n")
	buf.WriteString("# Generated by quorum - edit with care\n")
	buf.WriteString("\n")
	err := toml.NewEncoder(&buf).Encode(data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// table returns the map behind a scope, optionally creating page or
// provider sub-tables. Callers hold s.mu.
func (s *Store) table(scope Scope, create bool) map[string]any {
	kindTbl, ok := s.data[scope.kind].(map[string]any)
	if !ok {
		if !create {
			return nil
		}
		kindTbl = map[string]any{}
		s.data[scope.kind] = kindTbl
	}
	if scope.name == "" {
		return kindTbl
	}

	sub, ok := kindTbl[scope.name].(map[string]any)
	if !ok {
		if !create {
			return nil
		}
		sub = map[string]any{}
		kindTbl[scope.name] = sub
	}
	return sub
}

// Get returns the raw value stored under a scope and key.
func (s *Store) Get(scope Scope, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl := s.table(scope, false)
	if tbl == nil {
		return nil, false
	}
	v, ok := tbl[key]
	return v, ok
}

// Set stores a value under a scope and key, creating the scope's table
// as needed.
func (s *Store) Set(scope Scope, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(scope, true)[key] = value
}

// GetPageWithFallback looks up a page setting, then a fallback page's
// setting, then the default. Pass an empty fallbackPage to skip the
// middle step.
func (s *Store) GetPageWithFallback(page, key, fallbackPage, fallbackKey string, def any) any {
	if v, ok := s.Get(ScopePage(page), key); ok {
		return v
	}
	if fallbackPage != "" && fallbackKey != "" {
		if v, ok := s.Get(ScopePage(fallbackPage), fallbackKey); ok {
			return v
		}
	}
	return def
}

// =============================================================================
// TYPED GETTERS
// =============================================================================

// GetString returns a string value or def when absent or mistyped.
func (s *Store) GetString(scope Scope, key, def string) string {
	if v, ok := s.Get(scope, key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// GetInt returns an integer value or def. TOML integers decode as int64.
func (s *Store) GetInt(scope Scope, key string, def int) int {
	v, ok := s.Get(scope, key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// GetFloat returns a float value or def, accepting integer-typed values.
func (s *Store) GetFloat(scope Scope, key string, def float64) float64 {
	v, ok := s.Get(scope, key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return def
}

// GetBool returns a boolean value or def.
func (s *Store) GetBool(scope Scope, key string, def bool) bool {
	if v, ok := s.Get(scope, key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetStringSlice returns a string list value, or nil when absent.
func (s *Store) GetStringSlice(scope Scope, key string) []string {
	v, ok := s.Get(scope, key)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		var out []string
		for _, item := range list {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// =============================================================================
// KNOWN-KEY ACCESSORS
// =============================================================================

// SystemPrompt returns the system prompt prepended to every model call.
func (s *Store) SystemPrompt() string {
	return s.GetString(ScopeGlobal, "system_prompt", DefaultSystemPrompt)
}

// DefaultModels returns the models seeded onto the roster when an
// invocation names none. The key holds a TOML array or, when set from
// the command line, a single comma-separated string. Entries use the
// same "provider:name" form as the --model flag.
func (s *Store) DefaultModels() []string {
	if list := s.GetStringSlice(ScopeGlobal, "default_models"); len(list) > 0 {
		return list
	}
	raw := s.GetString(ScopeGlobal, "default_models", "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if m := strings.TrimSpace(part); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// IgnoredDirectories returns directory names pruned from document trees.
func (s *Store) IgnoredDirectories() []string {
	if dirs := s.GetStringSlice(ScopeGlobal, "ignored_directories"); dirs != nil {
		return dirs
	}
	out := make([]string, len(defaultIgnoredDirs))
	copy(out, defaultIgnoredDirs)
	return out
}

// IgnoreSet returns IgnoredDirectories as a membership set.
func (s *Store) IgnoreSet() map[string]bool {
	set := make(map[string]bool)
	for _, d := range s.IgnoredDirectories() {
		set[d] = true
	}
	return set
}

// CallTimeout bounds one model call within a turn.
func (s *Store) CallTimeout() time.Duration {
	secs := s.GetInt(ScopeGlobal, "call_timeout_seconds", DefaultCallTimeoutSeconds)
	if secs <= 0 {
		secs = DefaultCallTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// baseDir reads one entry of the [global].base_directories table.
func (s *Store) baseDir(key, def string) string {
	v, ok := s.Get(ScopeGlobal, "base_directories")
	if !ok {
		return def
	}
	m, ok := v.(map[string]any)
	if !ok {
		return def
	}
	str, ok := m[key].(string)
	if !ok || str == "" {
		return def
	}
	return str
}

// DocumentsDir returns the directory listed on the documents surface.
func (s *Store) DocumentsDir() string {
	return expandHome(s.baseDir("documents", "./data/documents"))
}

// SearchDir returns the directory indexed for search.
func (s *Store) SearchDir() string {
	return expandHome(s.baseDir("search", "./data/search"))
}

// ChatsDir returns where saved chats live, defaulting to chats/ beside
// the config file.
func (s *Store) ChatsDir() string {
	if dir := s.baseDir("saved_chats", ""); dir != "" {
		return expandHome(dir)
	}
	return filepath.Join(filepath.Dir(s.path), "chats")
}

// DocumentFormat returns the context format style for a page, falling
// back to the documents page and then to xml.
func (s *Store) DocumentFormat(page string) docfmt.Style {
	v := s.GetPageWithFallback(page, "format", "documents", "format", string(docfmt.StyleXML))
	if str, ok := v.(string); ok {
		if style := docfmt.Style(str); style.Valid() {
			return style
		}
	}
	return docfmt.StyleXML
}

// DocumentInstructions returns the instructions block prepended to
// formatted document context.
func (s *Store) DocumentInstructions(page string) string {
	v := s.GetPageWithFallback(page, "instructions", "documents", "instructions", "")
	if str, ok := v.(string); ok {
		return str
	}
	return ""
}

// OllamaURL returns the configured Ollama server endpoint.
func (s *Store) OllamaURL() string {
	return s.GetString(ScopeProvider("ollama"), "url", DefaultOllamaURL)
}

// BedrockRegion returns the configured AWS region for Bedrock.
func (s *Store) BedrockRegion() string {
	return s.GetString(ScopeProvider("bedrock"), "region", DefaultBedrockRegion)
}

// ProviderMaxTokens returns a provider's default response cap.
func (s *Store) ProviderMaxTokens(provider string) int {
	return s.GetInt(ScopeProvider(provider), "default_max_tokens", DefaultMaxTokens)
}

// ProviderTemperature returns a provider's default sampling temperature.
func (s *Store) ProviderTemperature(provider string) float64 {
	return s.GetFloat(ScopeProvider(provider), "default_temperature", DefaultTemperature)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the known keys. Unknown keys pass through untouched so
// templates can carry page-specific settings this build does not know.
func (s *Store) Validate() error {
	var errs ValidateErrors

	s.mu.RLock()
	pages, _ := s.data["pages"].(map[string]any)
	providers, _ := s.data["providers"].(map[string]any)
	s.mu.RUnlock()

	for name, raw := range pages {
		page, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if format, ok := page["format"].(string); ok && format != "" && !docfmt.Style(format).Valid() {
			errs = append(errs, ValidationError{
				Field: fmt.Sprintf("pages.%s.format", name),
				Message: fmt.Sprintf("invalid style '%s', must be one of: %s",
					format, strings.Join(styleNames(), ", ")),
			})
		}
	}

	for name, raw := range providers {
		provider, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if temp, ok := toFloat(provider["default_temperature"]); ok && (temp < 0 || temp > 2) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.default_temperature", name),
				Message: fmt.Sprintf("temperature %v out of range [0, 2]", temp),
			})
		}
		if max, ok := toFloat(provider["default_max_tokens"]); ok && max <= 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.default_max_tokens", name),
				Message: "must be positive",
			})
		}
		if url, ok := provider["url"].(string); ok && url != "" &&
			!strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.url", name),
				Message: fmt.Sprintf("invalid URL '%s', must start with http:// or https://", url),
			})
		}
	}

	if secs := s.GetInt(ScopeGlobal, "call_timeout_seconds", DefaultCallTimeoutSeconds); secs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "global.call_timeout_seconds",
			Message: "must be positive",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func styleNames() []string {
	styles := docfmt.Styles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return names
}

// =============================================================================
// TEMPLATES
// =============================================================================

// ErrTemplateNotFound indicates the named template does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateInfo is the metadata of one saved template.
type TemplateInfo struct {
	Name        string
	Description string
	CreatedAt   string
}

func (s *Store) templatePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	return filepath.Join(s.templatesDir, name+".toml"), nil
}

// SaveTemplate writes the current configuration as a named template.
func (s *Store) SaveTemplate(name, description string) error {
	path, err := s.templatePath(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := deepCopy(s.data)
	s.mu.RUnlock()

	snapshot["_metadata"] = map[string]any{
		"template_name": name,
		"description":   description,
		"created_at":    time.Now().Format(time.RFC3339),
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write template '%s': %w", name, err)
	}
	return nil
}

// LoadTemplate deep-merges a named template over the live configuration.
// The template's [_metadata] table is skipped. Changes stay in memory
// until Save.
func (s *Store) LoadTemplate(name string) error {
	path, err := s.templatePath(name)
	if err != nil {
		return err
	}

	var overlay map[string]any
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return fmt.Errorf("failed to load template '%s': %w", name, err)
	}

	s.mu.Lock()
	mergeConfig(s.data, overlay)
	ensureScopes(s.data)
	s.mu.Unlock()
	return nil
}

// ListTemplates returns the saved templates sorted by name. Unreadable
// files are skipped.
func (s *Store) ListTemplates() ([]TemplateInfo, error) {
	entries, err := os.ReadDir(s.templatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	var templates []TemplateInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		info := TemplateInfo{Name: name}

		var data map[string]any
		if _, err := toml.DecodeFile(filepath.Join(s.templatesDir, entry.Name()), &data); err == nil {
			if meta, ok := data["_metadata"].(map[string]any); ok {
				if d, ok := meta["description"].(string); ok {
					info.Description = d
				}
				if c, ok := meta["created_at"].(string); ok {
					info.CreatedAt = c
				}
			}
		}
		templates = append(templates, info)
	}

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// mergeConfig deep-merges overlay into base. Tables merge recursively,
// scalars and arrays replace, _metadata is skipped at every level.
func mergeConfig(base, overlay map[string]any) {
	for key, value := range overlay {
		if key == "_metadata" {
			continue
		}
		if overlayTbl, ok := value.(map[string]any); ok {
			if baseTbl, ok := base[key].(map[string]any); ok {
				mergeConfig(baseTbl, overlayTbl)
				continue
			}
		}
		base[key] = value
	}
}

// deepCopy clones nested config maps so snapshots don't alias live data.
func deepCopy(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if tbl, ok := value.(map[string]any); ok {
			out[key] = deepCopy(tbl)
			continue
		}
		out[key] = value
	}
	return out
}

// =============================================================================
// GLOBAL STORE
// =============================================================================

var (
	globalStore *Store
	globalOnce  sync.Once
	globalMu    sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first
// use. A load failure falls back to in-memory defaults.
func Global() *Store {
	globalOnce.Do(func() {
		store, err := Load()
		if err != nil {
			path, _ := ConfigPath()
			templates, _ := TemplatesDir()
			store = &Store{path: path, templatesDir: templates, data: defaultData()}
		}
		globalMu.Lock()
		globalStore = store
		globalMu.Unlock()
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalStore
}

// ReloadGlobal re-reads the global configuration from disk.
func ReloadGlobal() error {
	store, err := Load()
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalStore = store
	globalMu.Unlock()
	return nil
}
