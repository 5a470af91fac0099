// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the TUI
// and the chat REPL.
//
// Input starting with / is parsed into a command name and quote-aware
// arguments, looked up in the registry, and dispatched. Handlers return
// bubbletea commands that emit typed messages; the interface layer applies
// them to the application state on its own loop. The REPL dispatches over
// the same registry metadata without the bubbletea layer.
//
// # Key Types
//
//   - Registry: all available commands, by name and alias
//   - Parser: splits input into command and arguments
//   - Completer: tab completion for commands and arguments
//   - Context: application state handed to handlers
//
// # Built-in Commands
//
//   - /help: Show available commands
//   - /select: Pick one response of a multi-model turn
//   - /retry: Re-run the last prompt
//   - /save, /load, /chats: Saved chat management
//   - /docs, /format: Document context management
//   - /search: Query the document index
//   - /stats: Per-model usage statistics
//
// # Usage
//
//	result := parser.Parse(input)
//	if result.IsCommand && result.Command != nil {
//	    return result.Command.Handler(ctx, result.Args)
//	}
package commands
