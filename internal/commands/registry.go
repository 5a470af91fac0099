// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quorum/internal/app"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is one slash command.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/select <n>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler runs on the UI loop and returns the deferred effect
	Handler func(ctx *Context, args []string) tea.Cmd

	// Category for grouping in help display
	Category string
}

// ArgDef defines one argument of a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values holds the legal values for enum arguments
	Values []string
}

// ArgType determines validation and completion behavior.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeNumber                // Positive integer
	ArgTypeChat                  // Saved chat ID
	ArgTypeFile                  // Path under the documents directory
	ArgTypeEnum                  // One of predefined values
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// ByCategory returns commands grouped for help display.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.commands {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Navigation
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show help and available commands",
		Usage:       "/help [category]",
		Args: []ArgDef{
			{
				Name:        "category",
				Type:        ArgTypeEnum,
				Values:      []string{"conversation", "documents", "models", "navigation", "settings"},
				Description: "Help category",
			},
		},
		Category: "Navigation",
		Handler:  HandleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit quorum",
		Category:    "Navigation",
		Handler:     HandleQuit,
	})

	// Conversation
	r.Register(&Command{
		Name:        "/retry",
		Aliases:     []string{"/r"},
		Description: "Re-run the last prompt without repeating it",
		Category:    "Conversation",
		Handler:     HandleRetry,
	})

	r.Register(&Command{
		Name:        "/select",
		Description: "Pick one response of the current turn to continue with",
		Usage:       "/select <n>",
		Args: []ArgDef{
			{Name: "n", Required: true, Type: ArgTypeNumber, Description: "Response number, 1-based"},
		},
		Category: "Conversation",
		Handler:  HandleSelect,
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the current chat",
		Usage:       "/save [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeString, Description: "Optional name for the chat"},
		},
		Category: "Conversation",
		Handler:  HandleSave,
	})

	r.Register(&Command{
		Name:        "/load",
		Aliases:     []string{"/l"},
		Description: "Load a saved chat",
		Usage:       "/load <id>",
		Args: []ArgDef{
			{Name: "id", Required: true, Type: ArgTypeChat, Description: "Chat ID or list position"},
		},
		Category: "Conversation",
		Handler:  HandleLoad,
	})

	r.Register(&Command{
		Name:        "/chats",
		Aliases:     []string{"/list"},
		Description: "List saved chats",
		Category:    "Conversation",
		Handler:     HandleChats,
	})

	r.Register(&Command{
		Name:        "/reset",
		Aliases:     []string{"/clear", "/c"},
		Description: "Clear the conversation and usage counters",
		Category:    "Conversation",
		Handler:     HandleReset,
	})

	// Models
	r.Register(&Command{
		Name:        "/models",
		Aliases:     []string{"/m"},
		Description: "Show the model roster",
		Category:    "Models",
		Handler:     HandleModels,
	})

	r.Register(&Command{
		Name:        "/stats",
		Aliases:     []string{"/usage"},
		Description: "Show per-model usage statistics",
		Category:    "Models",
		Handler:     HandleStats,
	})

	// Documents
	r.Register(&Command{
		Name:        "/docs",
		Aliases:     []string{"/d"},
		Description: "Show or edit the document context",
		Usage:       "/docs [add <path> | remove <n> | clear]",
		Args: []ArgDef{
			{
				Name:        "action",
				Type:        ArgTypeEnum,
				Values:      []string{"add", "remove", "clear"},
				Description: "What to do; no action lists the selection",
			},
			{Name: "target", Type: ArgTypeFile, Description: "Path for add, number for remove"},
		},
		Category: "Documents",
		Handler:  HandleDocs,
	})

	r.Register(&Command{
		Name:        "/format",
		Aliases:     []string{"/f"},
		Description: "Show or switch the document context format",
		Usage:       "/format [style]",
		Args: []ArgDef{
			{
				Name:        "style",
				Type:        ArgTypeEnum,
				Values:      []string{"xml", "markdown", "simple", "default"},
				Description: "Document rendering style",
			},
		},
		Category: "Documents",
		Handler:  HandleFormat,
	})

	r.Register(&Command{
		Name:        "/search",
		Aliases:     []string{"/find"},
		Description: "Search the document index",
		Usage:       "/search <query>",
		Args: []ArgDef{
			{Name: "query", Required: true, Type: ArgTypeString, Description: "Full-text query"},
		},
		Category: "Documents",
		Handler:  HandleSearch,
	})
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context hands application state to command handlers. Handlers run on the
// UI loop, so reading App here is safe; mutation happens in the interface
// layer when it applies the emitted message. App may be nil in tests.
type Context struct {
	App *app.App
}

// NewContext creates a command context around the application state.
func NewContext(a *app.App) *Context {
	return &Context{App: a}
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion is one completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text (may include formatting)
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}
