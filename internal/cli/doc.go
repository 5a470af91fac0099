// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli provides command-line parsing and the non-TUI command
handlers for quorum.

Subcommand routing lives in Parse, which splits global flags from the
subcommand and leaves per-command argument parsing to each handler via
ArgParser. The default command (no subcommand) starts the TUI; `chat`
runs the line-oriented REPL for terminals where the full interface is
unwanted.

# Key Types

  - Command / Args - parsed invocation, consumed by main
  - ArgParser - unified flag/positional parsing for subcommands
  - Session - the wired application shared by REPL and subcommands
  - ChatCLI - liner-backed input with persistent history

# Commands

	quorum                 TUI (default)
	quorum chat            interactive REPL
	quorum models          list models each backend advertises
	quorum index           index documents for search
	quorum search <query>  query the document index
	quorum chats [query]   list or search saved conversations
	quorum config          show or change configuration
	quorum version         version information

# Usage

	cmd, args := cli.Parse()
	switch cmd {
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdSearch:
		err = cli.HandleSearch(args)
	}
*/
package cli
