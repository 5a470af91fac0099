// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for quorum.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/quorum/internal/provider"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdModels
	CmdIndex
	CmdSearch
	CmdChats
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool

	// Roster seeding. Each entry is a model name, optionally prefixed
	// with its backend ("bedrock:" or "ollama:").
	Models []string

	// Backend overrides for this invocation.
	ServerURL string
	Region    string
	DocsDir   string

	// Command-specific
	Subcommand string

	// Raw args remaining after global flag parsing, consumed by the
	// subcommand handlers through ArgParser.
	Raw []string
}

const usageText = `quorum - side-by-side chat across multiple models

Quorum sends each prompt to every model on the roster and shows the
responses next to each other. When more than one model answers, the
conversation is locked until one response is picked to carry the
thread forward; only the picked answer is replayed to the models on
the next turn.

Usage:
  quorum                      Start TUI (default)
  quorum chat                 Interactive chat REPL
  quorum models               List models each backend advertises
  quorum index [--watch]      Index documents for search
  quorum search <query>       Search indexed documents
  quorum chats [query]        List or search saved conversations
  quorum config [show|set|path]  Configuration
  quorum version              Show version information
  quorum help                 Show this help

Global Flags:
  --model NAME        Add a model to the roster (repeatable).
                      Prefix with "bedrock:" for AWS Bedrock models;
                      bare names and "ollama:" go to Ollama.
  --url URL           Ollama server URL (default http://127.0.0.1:11434)
  --region REGION     AWS region for Bedrock models
  --docs DIR          Override the documents and search directory
  -q, --quiet         Minimal output
  -v, --verbose       Write a debug log to the config directory

Chat Commands (inside chat):
  /help               Show available commands
  /retry              Re-send the last prompt to the roster
  /select <n>         Pick response n to continue the thread
  /save [name]        Save the conversation
  /load <id>          Load a saved conversation
  /chats              List saved conversations
  /reset              Clear the conversation
  /models             Show the model roster
  /docs [add|remove|clear]  Manage selected documents
  /format <style>     Set the document context format
  /stats              Show per-model usage statistics
  /search <query>     Search indexed documents
  /quit               Exit

Config Commands:
  quorum config                    Show current configuration (default)
  quorum config set <key> <value>  Set a configuration value
  quorum config set pages.documents.format markdown
                                   Set a page-scoped value
  quorum config path               Show configuration file path

Search Commands:
  quorum index                     Index new documents under the search dir
  quorum index --watch             Keep watching for changes and re-index
  quorum search "chunking"         Search with the default result count
  quorum search --top 10 "chunking"

Examples:
  quorum
  quorum --model llama3:8b --model gemma3:27b chat
  quorum --model bedrock:anthropic.claude-3-haiku-20240307-v1:0 --region us-west-2
  quorum chats "rate limiting"

Version: %s
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("quorum version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command to execute.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(argv)

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		parsedArgs.Subcommand = remaining[0]
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "chat", "repl":
		return CmdChat, parsedArgs

	case "models", "model":
		return CmdModels, parsedArgs

	case "index", "reindex":
		return CmdIndex, parsedArgs

	case "search", "find":
		return CmdSearch, parsedArgs

	case "chats", "saved":
		return CmdChats, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: keep it as a raw arg and start the TUI, the
		// same as running with no subcommand.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		parsedArgs.Subcommand = ""
		return CmdTUI, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--model", "-m":
			if i+1 < len(args) {
				i++
				parsedArgs.Models = append(parsedArgs.Models, args[i])
			}
		case "--url", "--server":
			if i+1 < len(args) {
				i++
				parsedArgs.ServerURL = args[i]
			}
		case "--region":
			if i+1 < len(args) {
				i++
				parsedArgs.Region = args[i]
			}
		case "--docs", "--docs-dir":
			if i+1 < len(args) {
				i++
				parsedArgs.DocsDir = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Models = append(parsedArgs.Models, strings.TrimPrefix(arg, "--model="))
			case strings.HasPrefix(arg, "--url="):
				parsedArgs.ServerURL = strings.TrimPrefix(arg, "--url=")
			case strings.HasPrefix(arg, "--region="):
				parsedArgs.Region = strings.TrimPrefix(arg, "--region=")
			case strings.HasPrefix(arg, "--docs="):
				parsedArgs.DocsDir = strings.TrimPrefix(arg, "--docs=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// SplitModelArg resolves a --model argument to its backend and model
// name. An explicit "bedrock:" or "ollama:" prefix wins; otherwise
// names with a vendor dot before any colon (anthropic.claude-...) are
// Bedrock model IDs and everything else is an Ollama tag.
func SplitModelArg(arg string) (provider.Kind, string) {
	if strings.HasPrefix(arg, "bedrock:") {
		return provider.KindBedrock, strings.TrimPrefix(arg, "bedrock:")
	}
	if strings.HasPrefix(arg, "ollama:") {
		return provider.KindOllama, strings.TrimPrefix(arg, "ollama:")
	}

	head := arg
	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		head = arg[:idx]
	}
	if strings.Contains(head, ".") {
		return provider.KindBedrock, arg
	}
	return provider.KindOllama, arg
}
