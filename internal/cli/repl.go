// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive chat REPL for the quorum CLI.
//
// Handles "quorum chat", a line-oriented alternative to the TUI for
// plain terminals and remote shells. Prompts go to every model on the
// roster; with more than one model the responses print in roster order
// and the next prompt stays locked until one is picked with /select or
// a bare number.
//
// Interactive commands are the same slash commands the TUI accepts;
// the REPL dispatches over the shared command registry.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/commands"
	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/turn"
)

// HistoryFileName is the liner history file inside the config directory.
const HistoryFileName = "chat_history"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history loaded from the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, HistoryFileName),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL SESSION
// =============================================================================

// ReplSession holds the state for one interactive chat session.
type ReplSession struct {
	Session *Session
	App     *app.App
	Quiet   bool

	StartTime time.Time
	Input     *ChatCLI

	// CancelFunc aborts the in-flight turn on Ctrl+C.
	CancelFunc context.CancelFunc

	registry *commands.Registry
	parser   *commands.Parser
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat REPL.
func HandleChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	wired, err := NewSession(args)
	if err != nil {
		return err
	}
	defer wired.Close()

	if wired.App.Models().Len() == 0 {
		return fmt.Errorf("no models on the roster; start with --model NAME (repeat the flag to compare models)")
	}

	session := &ReplSession{
		Session:   wired,
		App:       wired.App,
		Quiet:     args.Quiet,
		StartTime: time.Now(),
		Input:     NewChatCLI(),
		registry:  commands.NewRegistry(),
	}
	session.parser = commands.NewParser(session.registry)
	defer session.Input.Close()

	if !session.Quiet {
		printWelcome(session)
	}

	// First Ctrl+C during generation cancels the turn instead of the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if session.CancelFunc != nil {
				session.CancelFunc()
				session.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.Input.ReadInput(promptStyle.Render("quorum> "))
		if err != nil {
			// Ctrl+C at the prompt and Ctrl+D both exit gracefully.
			if err != liner.ErrPromptAborted {
				fmt.Println()
			}
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		// While a selection is pending, a bare number picks that
		// response.
		if session.App.AwaitingSelection() {
			if n, err := strconv.Atoi(input); err == nil {
				selectResponse(session, n)
				continue
			}
			printSelectionReminder(session)
			continue
		}

		if err := processTurn(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// TURN PROCESSING
// =============================================================================

// processTurn submits a prompt to the roster and renders the responses.
func processTurn(session *ReplSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	events, err := session.App.SubmitTurn(ctx, input)
	if err != nil {
		return friendlySubmitError(err)
	}

	return renderTurn(session, events)
}

// retryTurn re-sends the last prompt to the current roster.
func retryTurn(session *ReplSession) error {
	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	events, err := session.App.RetryTurn(ctx)
	if err != nil {
		return friendlySubmitError(err)
	}

	fmt.Println(infoStyle.Render("Retrying last prompt..."))
	return renderTurn(session, events)
}

// friendlySubmitError maps the app's sentinel errors to actionable
// messages.
func friendlySubmitError(err error) error {
	switch {
	case errors.Is(err, app.ErrNoModels):
		return fmt.Errorf("no models on the roster; restart with --model NAME")
	case errors.Is(err, app.ErrNothingToRetry):
		return fmt.Errorf("nothing to retry yet; send a prompt first")
	case errors.Is(err, chat.ErrAwaitingSelection):
		return fmt.Errorf("pick a response first: /select <n>")
	default:
		return err
	}
}

// renderTurn drains a turn's event channel, printing progress as each
// model finishes, then commits the result and renders the responses.
func renderTurn(session *ReplSession, events <-chan turn.Event) error {
	models := session.App.Models().Models()
	single := len(models) == 1
	useMarkdown := IsStdoutTTY()

	// With one model on a plain terminal the tokens stream straight
	// through. Markdown output and multi-model turns render complete
	// responses instead, so formatting stays intact.
	streamLive := single && !useMarkdown

	fmt.Println()

	var result *turn.Result
	start := time.Now()

	for ev := range events {
		switch ev.Kind {
		case turn.EventToken:
			if streamLive {
				fmt.Print(ev.Token)
			}

		case turn.EventDone:
			if !single && !session.Quiet {
				idx, name := rosterSlot(models, ev.ModelID)
				fmt.Printf("%s %s\n",
					modelPrefix(idx, name),
					mutedStyle.Render(fmt.Sprintf("finished in %s", time.Since(start).Round(time.Millisecond*100))))
			}

		case turn.EventFailed:
			idx, name := rosterSlot(models, ev.ModelID)
			fmt.Printf("%s %s\n",
				modelPrefix(idx, name),
				errorStyle.Render(ev.Friendly))

		case turn.EventTurnComplete:
			result = ev.Result
		}
	}

	if result == nil {
		// Channel closed without a terminal event; the context was
		// cancelled mid-turn.
		fmt.Println()
		return nil
	}

	session.App.CompleteTurn(result)

	printResponses(session, models, result, streamLive)

	if !session.Quiet {
		printTurnStats(result)
	}
	if session.App.AwaitingSelection() {
		printSelectionReminder(session)
	}
	return nil
}

// rosterSlot resolves a model ID to its roster index and display name.
func rosterSlot(models []provider.ModelConfig, id string) (int, string) {
	for i, m := range models {
		if m.ID == id {
			return i, m.DisplayName()
		}
	}
	return 0, id
}

// printResponses renders the turn's responses. A single streamed
// response already printed its tokens; everything else prints here.
func printResponses(session *ReplSession, models []provider.ModelConfig, result *turn.Result, alreadyStreamed bool) {
	if alreadyStreamed {
		fmt.Println()
		fmt.Println()
		return
	}

	for _, resp := range result.Responses {
		idx, name := rosterSlot(models, resp.ModelID)
		if len(models) > 1 {
			fmt.Printf("\n%s %s\n",
				modelPrefix(idx, name),
				mutedStyle.Render(usageSummary(resp)))
		}
		displayResponse(resp.Text)
		fmt.Println()
	}
	fmt.Println()
}

// usageSummary formats a response's token usage, or "" without one.
func usageSummary(resp *chat.AssistantMessage) string {
	if resp.Usage == nil {
		return ""
	}
	return fmt.Sprintf("%d in / %d out", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

// printTurnStats prints the one-line turn summary.
func printTurnStats(result *turn.Result) {
	parts := []string{
		fmt.Sprintf("%d response(s)", len(result.Responses)),
	}
	if len(result.Failures) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(result.Failures)))
	}
	parts = append(parts, result.Elapsed.Round(time.Millisecond*10).String())
	fmt.Println(mutedStyle.Render("[" + strings.Join(parts, " | ") + "]"))
}

// printSelectionReminder lists the live responses and how to pick one.
func printSelectionReminder(session *ReplSession) {
	run := session.App.History().LiveRun()
	fmt.Println()
	fmt.Println(warningStyle.Render("Selection needed to continue:"))
	for i, resp := range run {
		marker := " "
		if resp.Selected {
			marker = commandStyle.Render("*")
		}
		fmt.Printf("  %s %d. %s\n", marker, i+1, resp.ModelName)
	}
	fmt.Println(infoStyle.Render("Type a number (or /select <n>) to continue with that answer."))
}

// selectResponse picks response n (1-based) from the live run.
func selectResponse(session *ReplSession, n int) {
	run := session.App.History().LiveRun()
	if n < 1 || n > len(run) {
		fmt.Fprintf(os.Stderr, "%s This turn has %d response(s).\n",
			errorStyle.Render("[Error]"), len(run))
		return
	}
	if err := session.App.SelectResponse(n - 1); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}
	fmt.Printf("%s Continuing with %s.\n",
		commandStyle.Render("[OK]"),
		run[n-1].ModelName)
}
