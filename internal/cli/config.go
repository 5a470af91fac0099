// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - "quorum config" subcommand.
//
// Reads and writes the TOML configuration. Keys address settings in
// scope-dotted form:
//
//	system_prompt                   [global] table
//	global.call_timeout_seconds     [global] table, explicit
//	pages.documents.format          a page table
//	providers.ollama.url            a provider table

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/util"
)

// HandleConfig shows or edits the configuration.
//
//	quorum config                         show effective settings
//	quorum config get <key>               print one value
//	quorum config set <key> <value>       set and save
//	quorum config path                    print the config file path
//	quorum config validate                check the file for mistakes
//	quorum config templates               list saved templates
//	quorum config save-template <name> [description]
//	quorum config load-template <name>
func HandleConfig(args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "show":
		printConfig(cfg)
		return nil

	case "get":
		return configGet(cfg, parser.Positional(1))

	case "set":
		return configSet(cfg, parser.Positional(1), JoinPositionalArgs(parser, 2))

	case "path":
		fmt.Println(cfg.Path())
		return nil

	case "validate":
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println(commandStyle.Render("[OK]") + " Configuration is valid.")
		return nil

	case "templates":
		return listTemplates(cfg)

	case "save-template":
		name := parser.Positional(1)
		if name == "" {
			return fmt.Errorf("usage: quorum config save-template <name> [description]")
		}
		desc := JoinPositionalArgs(parser, 2)
		if err := cfg.SaveTemplate(name, desc); err != nil {
			return fmt.Errorf("save template: %w", err)
		}
		fmt.Printf("%s Saved template %s\n", commandStyle.Render("[OK]"), name)
		return nil

	case "load-template":
		name := parser.Positional(1)
		if name == "" {
			return fmt.Errorf("usage: quorum config load-template <name>")
		}
		if err := cfg.LoadTemplate(name); err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("%s Applied template %s\n", commandStyle.Render("[OK]"), name)
		return nil

	default:
		return fmt.Errorf("unknown config command %q; try show, get, set, path, validate, or templates", parser.Subcommand())
	}
}

// =============================================================================
// KEY ADDRESSING
// =============================================================================

// splitConfigKey resolves a dotted key to its scope and leaf key.
func splitConfigKey(dotted string) (config.Scope, string, error) {
	parts := strings.Split(dotted, ".")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return config.ScopeGlobal, parts[0], nil
	case len(parts) == 2 && parts[0] == "global":
		return config.ScopeGlobal, parts[1], nil
	case len(parts) == 3 && parts[0] == "pages":
		return config.ScopePage(parts[1]), parts[2], nil
	case len(parts) == 3 && parts[0] == "providers":
		return config.ScopeProvider(parts[1]), parts[2], nil
	}
	return config.Scope{}, "", fmt.Errorf(
		"bad key %q; use KEY, pages.PAGE.KEY, or providers.PROVIDER.KEY", dotted)
}

// parseConfigValue types a value the way TOML would. Numbers parse
// before booleans so "1" stays an integer for numeric keys.
func parseConfigValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := ParseBoolString(raw); err == nil {
		return b
	}
	return raw
}

func configGet(cfg *config.Store, key string) error {
	if key == "" {
		return fmt.Errorf("usage: quorum config get <key>")
	}
	scope, leaf, err := splitConfigKey(key)
	if err != nil {
		return err
	}
	value, ok := cfg.Get(scope, leaf)
	if !ok {
		return fmt.Errorf("key %s is not set", key)
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(cfg *config.Store, key, raw string) error {
	if key == "" || raw == "" {
		return fmt.Errorf("usage: quorum config set <key> <value>")
	}
	scope, leaf, err := splitConfigKey(key)
	if err != nil {
		return err
	}

	cfg.Set(scope, leaf, parseConfigValue(raw))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("%s %s = %s\n", commandStyle.Render("[OK]"), key, raw)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func printConfig(cfg *config.Store) {
	fmt.Println(mutedStyle.Render("# " + cfg.Path()))
	fmt.Println()

	fmt.Println(summaryHeaderStyle.Render("[global]"))
	printSetting("system_prompt", strconv.Quote(util.TruncateRunes(cfg.SystemPrompt(), 60)))
	printSetting("call_timeout_seconds", fmt.Sprintf("%.0f", cfg.CallTimeout().Seconds()))
	printSetting("ignored_directories", strings.Join(cfg.IgnoredDirectories(), ", "))
	printSetting("base_directories.documents", cfg.DocumentsDir())
	printSetting("base_directories.search", cfg.SearchDir())
	printSetting("base_directories.saved_chats", cfg.ChatsDir())
	fmt.Println()

	fmt.Println(summaryHeaderStyle.Render("[pages.documents]"))
	printSetting("format", string(cfg.DocumentFormat("documents")))
	printSetting("instructions", strconv.Quote(util.TruncateRunes(cfg.DocumentInstructions("documents"), 60)))
	fmt.Println()

	for _, name := range []string{"ollama", "bedrock"} {
		fmt.Println(summaryHeaderStyle.Render("[providers." + name + "]"))
		if name == "ollama" {
			printSetting("url", cfg.OllamaURL())
		} else {
			printSetting("region", cfg.BedrockRegion())
		}
		printSetting("default_max_tokens", strconv.Itoa(cfg.ProviderMaxTokens(name)))
		printSetting("default_temperature", fmt.Sprintf("%.1f", cfg.ProviderTemperature(name)))
		fmt.Println()
	}

	fmt.Println(mutedStyle.Render("Change a value with: quorum config set <key> <value>"))
}

func printSetting(key, value string) {
	fmt.Printf("  %-30s %s\n", key, mutedStyle.Render(value))
}

func listTemplates(cfg *config.Store) error {
	templates, err := cfg.ListTemplates()
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		fmt.Println(infoStyle.Render("No templates saved. Create one with: quorum config save-template <name>"))
		return nil
	}
	for _, tpl := range templates {
		desc := tpl.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("  %-20s %s\n", tpl.Name, mutedStyle.Render(desc))
	}
	return nil
}
