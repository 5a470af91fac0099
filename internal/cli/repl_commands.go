// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl_commands.go - Slash command dispatch for the chat REPL.
//
// The REPL parses and validates input against the shared command
// registry, then runs its own line-oriented implementations. The
// registry's tea.Cmd handlers belong to the TUI event loop and are not
// invoked here.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/commands"
	"github.com/jeranaias/quorum/internal/docfmt"
	"github.com/jeranaias/quorum/internal/search"
	"github.com/jeranaias/quorum/internal/storage"
)

// helpCategories orders /help output. The registry reports commands per
// category; the map itself has no order.
var helpCategories = []string{"Navigation", "Conversation", "Models", "Documents"}

// handleSlashCommand dispatches one slash command. The returned bool
// reports whether the REPL should keep running.
func handleSlashCommand(input string, session *ReplSession) (bool, error) {
	pr := session.parser.Parse(input)
	if pr.Command == nil {
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", pr.CommandName)
	}
	if err := commands.ValidateArgs(pr.Command, pr.Args); err != nil {
		return true, err
	}

	switch pr.Command.Name {
	case "/help":
		printHelp(session, pr.Args)
		return true, nil

	case "/quit":
		return false, nil

	case "/retry":
		return true, retryTurn(session)

	case "/select":
		n, err := strconv.Atoi(pr.Args[0])
		if err != nil {
			return true, fmt.Errorf("response number must be an integer")
		}
		selectResponse(session, n)
		return true, nil

	case "/save":
		return true, saveChat(session, strings.Join(pr.Args, " "))

	case "/load":
		return true, loadChat(session, pr.Args[0])

	case "/chats":
		return true, listChats(session)

	case "/reset":
		session.App.ResetChat()
		fmt.Println(infoStyle.Render("Conversation and usage counters cleared."))
		return true, nil

	case "/models":
		printModels(session)
		return true, nil

	case "/stats":
		fmt.Println(session.App.FormatUsage())
		return true, nil

	case "/docs":
		return true, handleDocs(session, pr.Args)

	case "/format":
		return true, handleFormat(session, pr.Args)

	case "/search":
		return true, searchDocs(session, strings.Join(pr.Args, " "))

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", pr.Command.Name)
	}
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func saveChat(session *ReplSession, name string) error {
	id, err := session.App.SaveChat(name)
	if err != nil {
		if errors.Is(err, chat.ErrAwaitingSelection) {
			return fmt.Errorf("pick a response first: /select <n>")
		}
		return fmt.Errorf("save chat: %w", err)
	}
	fmt.Printf("%s Saved chat %s\n", commandStyle.Render("[OK]"), id)
	return nil
}

func loadChat(session *ReplSession, ref string) error {
	if err := session.App.LoadChat(ref); err != nil {
		return fmt.Errorf("load chat: %w", err)
	}
	fmt.Printf("%s Loaded chat %s (%d messages)\n",
		commandStyle.Render("[OK]"), ref, session.App.History().Len())
	printHistory(session)
	return nil
}

func listChats(session *ReplSession) error {
	metas, err := session.App.ListChats()
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	fmt.Println(storage.FormatChatList(metas))
	if len(metas) > 0 {
		fmt.Println(mutedStyle.Render("Load one with /load <#> or /load <id>."))
	}
	return nil
}

// =============================================================================
// DOCUMENT COMMANDS
// =============================================================================

func handleDocs(session *ReplSession, args []string) error {
	if len(args) == 0 {
		printDocs(session)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: /docs add <path>")
		}
		if err := session.App.AddDocument(args[1]); err != nil {
			return fmt.Errorf("add document: %w", err)
		}
		fmt.Printf("%s Added %s to the context.\n", commandStyle.Render("[OK]"), args[1])
		return nil

	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: /docs remove <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > session.App.Picks().Len() {
			return fmt.Errorf("no document #%s; /docs lists the selection", args[1])
		}
		session.App.RemovePick(n - 1)
		fmt.Println(infoStyle.Render("Removed."))
		return nil

	case "clear":
		session.App.ClearPicks()
		fmt.Println(infoStyle.Render("Document selection cleared."))
		return nil

	default:
		return fmt.Errorf("usage: /docs [add <path> | remove <n> | clear]")
	}
}

// printDocs lists the current selection, then the documents available
// for adding.
func printDocs(session *ReplSession) {
	items := session.App.Picks().Items()
	if len(items) == 0 {
		fmt.Println(infoStyle.Render("No documents selected."))
	} else {
		fmt.Println(summaryHeaderStyle.Render("Selected documents:"))
		for i, it := range items {
			fmt.Printf("  %d. %s\n", i+1, it.DisplayName())
		}
	}

	available, err := session.App.ListDocuments(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s list documents: %v\n", warningStyle.Render("[Warning]"), err)
		return
	}
	if len(available) == 0 {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("No markdown files in %s.", session.Session.Cfg.DocumentsDir())))
		return
	}
	fmt.Println(summaryHeaderStyle.Render("Available:"))
	for _, name := range available {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println(mutedStyle.Render("Add one with /docs add <path>."))
}

func handleFormat(session *ReplSession, args []string) error {
	if len(args) == 0 {
		fmt.Printf("Document format: %s\n", commandStyle.Render(string(session.App.DocFormat())))
		names := make([]string, 0, len(docfmt.Styles()))
		for _, s := range docfmt.Styles() {
			names = append(names, string(s))
		}
		fmt.Println(mutedStyle.Render("Styles: " + strings.Join(names, ", ")))
		return nil
	}

	style := docfmt.Style(strings.ToLower(args[0]))
	if err := session.App.SetDocFormat(style); err != nil {
		return err
	}
	fmt.Printf("%s Document format set to %s.\n", commandStyle.Render("[OK]"), style)
	return nil
}

func searchDocs(session *ReplSession, query string) error {
	results, err := session.App.SearchDocuments(query, 5)
	if err != nil {
		if errors.Is(err, app.ErrSearchUnavailable) {
			return fmt.Errorf("search index unavailable; run `quorum index` first")
		}
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println(infoStyle.Render("No matches."))
		return nil
	}

	for i, res := range results {
		fmt.Printf("\n%s %s\n",
			commandStyle.Render(fmt.Sprintf("%d.", i+1)),
			summaryHeaderStyle.Render(res.FilePath))
		excerpt := search.Excerpt(res.Content, search.ExcerptLength)
		displayResponse(search.Highlight(excerpt, query))
	}
	fmt.Println()
	fmt.Println(mutedStyle.Render("Pull a file into the context with /docs add <path>."))
	return nil
}

// =============================================================================
// ROSTER AND STATS OUTPUT
// =============================================================================

func printModels(session *ReplSession) {
	models := session.App.Models().Models()
	if len(models) == 0 {
		fmt.Println(infoStyle.Render("No models on the roster."))
		return
	}
	fmt.Println(summaryHeaderStyle.Render("Model roster:"))
	for i, m := range models {
		fmt.Printf("  %s %s  %s\n",
			modelPrefix(i, m.DisplayName()),
			mutedStyle.Render(m.Kind.DisplayName()),
			mutedStyle.Render(fmt.Sprintf("max %d tok, temp %.1f", m.Params.MaxTokens, m.Params.Temperature)))
	}
	if len(models) > 1 {
		fmt.Println(mutedStyle.Render("Each prompt goes to every model; /select picks the answer to keep."))
	}
}

// =============================================================================
// SESSION OUTPUT
// =============================================================================

func printWelcome(session *ReplSession) {
	fmt.Println(welcomeStyle.Render("quorum " + Version))

	models := session.App.Models().Models()
	var tags []string
	for i, m := range models {
		tags = append(tags, modelPrefix(i, m.DisplayName()))
	}
	fmt.Printf("Models: %s\n", strings.Join(tags, " "))
	if len(models) > 1 {
		fmt.Println(infoStyle.Render("Responses arrive side by side; pick one with a number or /select before the next prompt."))
	}
	fmt.Println(infoStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

func printHelp(session *ReplSession, args []string) {
	var filter string
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}

	byCategory := session.registry.ByCategory()
	printed := false
	for _, category := range helpCategories {
		if filter != "" && strings.ToLower(category) != filter {
			continue
		}
		cmds := byCategory[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Println(summaryHeaderStyle.Render(category))
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Printf("  %-38s %s\n", commandStyle.Render(fmt.Sprintf("%-28s", usage)), cmd.Description)
		}
		fmt.Println()
		printed = true
	}
	if !printed {
		fmt.Println(infoStyle.Render("No commands in that category. Categories: " + strings.ToLower(strings.Join(helpCategories, ", "))))
		return
	}
	fmt.Println(mutedStyle.Render("Plain text is sent to every model on the roster. exit or quit also leave."))
}

// printHistory replays the conversation after /load, one line per
// message.
func printHistory(session *ReplSession) {
	msgs := session.App.History().Messages()
	if len(msgs) == 0 {
		return
	}
	fmt.Println()
	for _, msg := range msgs {
		if !msg.IsSelected() {
			continue
		}
		content := msg.Content()
		label := "you"
		switch m := msg.(type) {
		case *chat.UserMessage:
			content = m.DisplayContent()
		case *chat.AssistantMessage:
			label = "model"
			if m.ModelName != "" {
				label = m.ModelName
			}
		}
		content = strings.ReplaceAll(content, "\n", " ")
		runes := []rune(content)
		if len(runes) > 100 {
			content = string(runes[:100]) + "..."
		}
		fmt.Printf("  %s %s\n", mutedStyle.Render(label+":"), content)
	}
	fmt.Println()
}

func printExitSummary(session *ReplSession) {
	turns := 0
	for _, msg := range session.App.History().Messages() {
		if msg.Role() == chat.RoleUser {
			turns++
		}
	}
	if turns == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session summary"))
	fmt.Printf("  Duration: %s\n", time.Since(session.StartTime).Round(time.Second))
	fmt.Printf("  Prompts:  %d\n", turns)
	fmt.Println(session.App.FormatUsage())
	fmt.Println(infoStyle.Render("Goodbye!"))
}
