// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// update.go - message dispatch and state transitions.

package compare

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/commands"
	"github.com/jeranaias/quorum/internal/docfmt"
	"github.com/jeranaias/quorum/internal/search"
	"github.com/jeranaias/quorum/internal/storage"
	"github.com/jeranaias/quorum/internal/turn"
	"github.com/jeranaias/quorum/internal/ui/components"
)

// searchNoticeResults caps how many hits a /search notice lists.
const searchNoticeResults = 5

// =============================================================================
// UPDATE
// =============================================================================

// Update advances the model. All branches funnel through here so the chrome
// and viewport stay consistent after every transition.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncChrome()
	next.syncViewport()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StreamTickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		for _, p := range m.panes {
			p.FlushDue()
		}
		return m, streamTickCmd()

	case StreamTokenMsg:
		if p := m.paneIdx[msg.ModelID]; p != nil {
			p.AppendToken(msg.Token)
		}
		return m, nil

	case StreamDoneMsg:
		if p := m.paneIdx[msg.ModelID]; p != nil {
			p.Finish(msg.Response)
		}
		return m, nil

	case StreamFailedMsg:
		if p := m.paneIdx[msg.ModelID]; p != nil {
			p.Fail(msg.Friendly)
		}
		return m, nil

	case TurnCompleteMsg:
		return m.completeTurn(msg)
	}

	if next, cmd, handled := m.applyCommandMsg(msg); handled {
		return next, cmd
	}

	// Anything else feeds the input line and the viewport.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.state != StateStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	m.input.Width = msg.Width - 8
	if m.input.Width < 10 {
		m.input.Width = 10
	}
	m.help.Width = msg.Width

	m.viewport.Width = msg.Width
	m.transcriptDirty = true

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Quit always works, even mid-stream.
	if key.Matches(msg, m.keys.Quit) {
		m.stopTurn()
		return m, tea.Quit
	}

	if msg.Type == tea.KeyCtrlC {
		if m.state == StateStreaming {
			m.stopTurn()
			return m, nil
		}
		return m, tea.Quit
	}

	if key.Matches(msg, m.keys.Cancel) {
		switch {
		case m.completion.Visible:
			m.completion.Clear()
		case m.state == StateStreaming:
			m.stopTurn()
		case m.showHelp:
			m.showHelp = false
		default:
			m.errBox = nil
			m.notice = ""
		}
		return m, nil
	}

	// Scrolling works in every state.
	if key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown, m.keys.Home, m.keys.End) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	// While streaming, everything except scroll and cancel is swallowed so
	// a stray keypress cannot mutate the conversation mid-turn.
	if m.state == StateStreaming {
		return m, nil
	}

	// Digit keys pick a response while the gate is closed and the prompt
	// line is empty. With text in the prompt they type normally.
	if m.state == StateSelecting && strings.TrimSpace(m.input.Value()) == "" {
		if n, ok := digitKey(msg); ok {
			return m.selectResponse(n - 1)
		}
	}

	if key.Matches(msg, m.keys.Tab) {
		return m.cycleCompletion(1)
	}
	if msg.Type == tea.KeyShiftTab {
		return m.cycleCompletion(-1)
	}

	if key.Matches(msg, m.keys.Help) && strings.TrimSpace(m.input.Value()) == "" {
		m.showHelp = !m.showHelp
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		if m.completion.Visible {
			m.acceptCompletion()
			return m, nil
		}
		return m.submitInput()
	}

	// Everything else types into the prompt.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.completion.Visible {
		m.refreshCompletions()
	}
	return m, cmd
}

// digitKey decodes a plain 1-9 keypress.
func digitKey(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}

// =============================================================================
// COMPLETION
// =============================================================================

func (m Model) cycleCompletion(dir int) (Model, tea.Cmd) {
	if !m.completion.Visible {
		m.refreshCompletions()
		return m, nil
	}
	if dir > 0 {
		m.completion.Next()
	} else {
		m.completion.Prev()
	}
	return m, nil
}

func (m *Model) refreshCompletions() {
	input := m.input.Value()
	items := m.completer.Complete(input, len(input))
	if len(items) == 0 {
		m.completion.Clear()
		return
	}
	m.completion.Update(input, items)
}

// acceptCompletion splices the selected suggestion into the prompt. Command
// completions replace the whole line; argument completions replace the
// token under the cursor.
func (m *Model) acceptCompletion() {
	value := m.completion.Accept()
	m.completion.Clear()
	if value == "" {
		return
	}

	if strings.HasPrefix(value, "/") {
		m.input.SetValue(value + " ")
		m.input.CursorEnd()
		return
	}

	current := m.input.Value()
	if strings.HasSuffix(current, " ") || current == "" {
		m.input.SetValue(current + value)
	} else {
		fields := strings.Fields(current)
		fields[len(fields)-1] = value
		m.input.SetValue(strings.Join(fields, " "))
	}
	m.input.CursorEnd()
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submitInput() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.completion.Clear()
	m.errBox = nil
	m.notice = ""
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	if m.state == StateSelecting {
		// A bare number picks; anything else is held behind the gate.
		if n, err := strconv.Atoi(text); err == nil {
			return m.selectResponse(n - 1)
		}
		m.errBox = errBoxFor("Selection pending",
			"pick one response before continuing the conversation",
			"press 1-9 or use /select <n>")
		return m, nil
	}

	return m.startTurn(text, false)
}

func (m Model) runCommand(text string) (Model, tea.Cmd) {
	pr := m.parser.Parse(text)
	if pr.Command == nil {
		m.errBox = errBoxFor("Unknown command", pr.CommandName, "type /help for the list")
		return m, nil
	}
	if err := commands.ValidateArgs(pr.Command, pr.Args); err != nil {
		m.errBox = errBoxFor("Invalid arguments", err.Error(), "usage: "+pr.Command.Usage)
		return m, nil
	}

	ctx := commands.NewContext(m.app)
	return m, pr.Command.Handler(ctx, pr.Args)
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

func (m Model) startTurn(prompt string, retry bool) (Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())

	var (
		events <-chan turn.Event
		err    error
	)
	if retry {
		events, err = m.app.RetryTurn(ctx)
	} else {
		events, err = m.app.SubmitTurn(ctx, prompt)
	}
	if err != nil {
		cancel()
		m.errBox = submitErrorBox(err)
		return m, nil
	}

	m.cancelTurn = cancel
	m.turnStart = time.Now()
	m.state = StateStreaming
	m.panes = newPanes(m.app.Models().Models())
	m.paneIdx = map[string]*Pane{}
	for _, p := range m.panes {
		m.paneIdx[p.ModelID] = p
	}
	m.transcriptDirty = true

	return m, tea.Batch(drainTurnCmd(events), streamTickCmd(), m.spin.Tick)
}

// drainTurnCmd republishes turn events as Bubble Tea messages. Everything
// before the terminal event goes through the running program; the terminal
// event is the command's own return value, which guarantees it is delivered
// after the sends that preceded it.
func drainTurnCmd(events <-chan turn.Event) tea.Cmd {
	return func() tea.Msg {
		for ev := range events {
			switch ev.Kind {
			case turn.EventToken:
				send(StreamTokenMsg{ModelID: ev.ModelID, Token: ev.Token})
			case turn.EventDone:
				send(StreamDoneMsg{ModelID: ev.ModelID, Response: ev.Response})
			case turn.EventFailed:
				send(StreamFailedMsg{ModelID: ev.ModelID, Friendly: ev.Friendly, Err: ev.Err})
			case turn.EventTurnComplete:
				return TurnCompleteMsg{Result: ev.Result}
			}
		}
		// Channel closed without a summary: the turn was cancelled.
		return TurnCompleteMsg{}
	}
}

// stopTurn cancels the in-flight turn, if any. The drain command then sees
// the channel close and delivers an empty TurnCompleteMsg.
func (m *Model) stopTurn() {
	if m.cancelTurn != nil {
		m.cancelTurn()
		m.cancelTurn = nil
	}
}

func (m Model) completeTurn(msg TurnCompleteMsg) (Model, tea.Cmd) {
	if m.cancelTurn != nil {
		m.cancelTurn()
		m.cancelTurn = nil
	}

	if msg.Result == nil {
		// Cancelled turn: nothing is committed, the prompt stays in the
		// transcript and can be retried. The gate is re-read from the
		// conversation in case a /load landed while the turn wound down.
		m.clearPanes()
		if m.app.AwaitingSelection() {
			m.state = StateSelecting
			m.panesFromLiveRun()
		} else {
			m.state = StateReady
			m.notice = "Turn cancelled. /retry replays the prompt."
		}
		m.transcriptDirty = true
		return m, nil
	}

	m.app.CompleteTurn(msg.Result)

	if msg.Result.NeedsSelection {
		// Panes stay up; they are the selection UI. When every model
		// failed they show the errors, and /retry reopens the gate.
		m.state = StateSelecting
	} else {
		m.clearPanes()
		m.state = StateReady
		if len(msg.Result.Responses) == 0 && len(msg.Result.Failures) > 0 {
			first := msg.Result.Failures[0]
			m.errBox = errBoxFor("Turn failed", first.Friendly, "/retry replays the prompt")
		}
	}
	m.transcriptDirty = true
	return m, nil
}

func (m *Model) clearPanes() {
	m.panes = nil
	m.paneIdx = map[string]*Pane{}
}

func (m Model) selectResponse(offset int) (Model, tea.Cmd) {
	if err := m.app.SelectResponse(offset); err != nil {
		m.errBox = errBoxFor("No such response",
			fmt.Sprintf("%d is not on the board", offset+1),
			"press a digit shown on a pane title")
		return m, nil
	}

	name := ""
	if run := m.app.History().LiveRun(); offset < len(run) {
		name = run[offset].ModelName
	}

	m.clearPanes()
	m.state = StateReady
	m.notice = fmt.Sprintf("Continuing with %s.", name)
	m.transcriptDirty = true
	return m, nil
}

// panesFromLiveRun rebuilds static panes for a restored conversation whose
// selection gate is still closed. There are no live buffers to drain; the
// responses are already complete.
func (m *Model) panesFromLiveRun() {
	run := m.app.History().LiveRun()
	m.clearPanes()
	for i, resp := range run {
		p := &Pane{
			ModelID: resp.ModelID,
			Title:   resp.ModelName,
			Index:   i,
			buffer:  NewStreamingBuffer(),
		}
		p.content.WriteString(resp.Text)
		p.status = paneDone
		p.response = resp
		m.panes = append(m.panes, p)
		m.paneIdx[p.ModelID] = p
	}
}

// =============================================================================
// COMMAND MESSAGES
// =============================================================================

// applyCommandMsg executes the effects emitted by registry handlers. The
// handlers validate on the UI loop and emit one of these messages; the state
// mutation happens here, still on the UI loop.
func (m Model) applyCommandMsg(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case commands.ShowHelpMsg:
		m.notice = m.buildHelp(msg.Topic)

	case commands.RetryTurnMsg:
		next, cmd := m.startTurn("", true)
		return next, cmd, true

	case commands.SelectResponseMsg:
		next, cmd := m.selectResponse(msg.Offset)
		return next, cmd, true

	case commands.SaveChatMsg:
		id, err := m.app.SaveChat(msg.Name)
		if errors.Is(err, chat.ErrAwaitingSelection) {
			m.errBox = errBoxFor("Selection pending", "the last turn has no picked response", "/select <n> first")
		} else if err != nil {
			m.errBox = errBoxFor("Save failed", err.Error(), "")
		} else {
			m.notice = fmt.Sprintf("Saved chat %s.", id)
		}

	case commands.LoadChatMsg:
		if err := m.app.LoadChat(msg.Ref); err != nil {
			tip := ""
			if errors.Is(err, storage.ErrChatNotFound) {
				tip = "/chats lists what is saved"
			}
			m.errBox = errBoxFor("Load failed", err.Error(), tip)
		} else {
			m.stopTurn()
			if m.app.AwaitingSelection() {
				m.state = StateSelecting
				m.panesFromLiveRun()
			} else {
				m.state = StateReady
				m.clearPanes()
			}
			m.notice = fmt.Sprintf("Loaded chat (%d messages).", m.app.History().Len())
			m.transcriptDirty = true
		}

	case commands.ListChatsMsg:
		metas, err := m.app.ListChats()
		if err != nil {
			m.errBox = errBoxFor("Chats unavailable", err.Error(), "")
		} else {
			m.notice = storage.FormatChatList(metas) + "\n\nLoad one with /load <id>."
		}

	case commands.ResetChatMsg:
		m.stopTurn()
		m.app.ResetChat()
		m.clearPanes()
		m.state = StateReady
		m.notice = "Conversation reset. Document picks kept."
		m.transcriptDirty = true

	case commands.ShowModelsMsg:
		m.notice = m.buildRoster()

	case commands.ShowDocsMsg:
		m.notice = m.buildDocs()

	case commands.AddDocumentMsg:
		if err := m.app.AddDocument(msg.Path); err != nil {
			m.errBox = errBoxFor("Document rejected", err.Error(), "/docs lists what is available")
		} else {
			m.notice = fmt.Sprintf("Added %s to the context.", msg.Path)
		}

	case commands.RemovePickMsg:
		if msg.Index < 0 || msg.Index >= m.app.Picks().Len() {
			m.errBox = errBoxFor("No such pick", fmt.Sprintf("%d is not on the pick list", msg.Index+1), "/docs shows the numbered picks")
		} else {
			m.app.RemovePick(msg.Index)
			m.notice = "Removed document pick."
		}

	case commands.ClearPicksMsg:
		m.app.ClearPicks()
		m.notice = "Document picks cleared."

	case commands.ShowFormatsMsg:
		m.notice = m.buildFormats()

	case commands.SetFormatMsg:
		if err := m.app.SetDocFormat(msg.Style); err != nil {
			m.errBox = errBoxFor("Unknown format", err.Error(), "/format lists the styles")
		} else {
			m.notice = fmt.Sprintf("Document format set to %s.", msg.Style)
		}

	case commands.ShowStatsMsg:
		m.notice = m.app.FormatUsage()

	case commands.SearchQueryMsg:
		m.applySearch(msg.Query)

	case commands.ErrorMsg:
		m.errBox = errBoxFor(msg.Title, msg.Message, msg.Tip)

	case commands.SystemMessageMsg:
		m.notice = msg.Content

	default:
		return m, nil, false
	}

	return m, nil, true
}

func (m *Model) applySearch(query string) {
	results, err := m.app.SearchDocuments(query, searchNoticeResults)
	if errors.Is(err, app.ErrSearchUnavailable) {
		m.errBox = errBoxFor("Search unavailable", "the document index is not open", "run `quorum index` first")
		return
	}
	if err != nil {
		m.errBox = errBoxFor("Search failed", err.Error(), "")
		return
	}
	if len(results) == 0 {
		m.notice = fmt.Sprintf("No matches for %s.", strconv.Quote(query))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches for %s:\n", strconv.Quote(query))
	for i, res := range results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, res.FilePath)
		excerpt := search.Excerpt(res.Content, search.ExcerptLength)
		b.WriteString(search.Highlight(excerpt, query))
		b.WriteString("\n")
	}
	b.WriteString("\nAttach one with /docs add <path>.")
	m.notice = b.String()
}

// =============================================================================
// NOTICE BUILDERS
// =============================================================================

// helpCategories fixes the section order of /help output.
var helpCategories = []string{"Navigation", "Conversation", "Models", "Documents"}

func (m Model) buildHelp(topic string) string {
	grouped := m.registry.ByCategory()

	var b strings.Builder
	b.WriteString("Commands\n")
	for _, category := range helpCategories {
		if topic != "" && !strings.EqualFold(topic, category) {
			continue
		}
		cmds := grouped[category]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", category)
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "  %-28s %s\n", usage, cmd.Description)
		}
	}

	if topic == "" {
		b.WriteString("\nKeys\n")
		for _, row := range m.keys.FullHelp() {
			for _, binding := range row {
				h := binding.Help()
				fmt.Fprintf(&b, "  %-28s %s\n", h.Key, h.Desc)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) buildRoster() string {
	models := m.app.Models().Models()
	if len(models) == 0 {
		return "No models on the roster."
	}

	var b strings.Builder
	b.WriteString("Roster\n")
	for i, mc := range models {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n   max %d tok, temp %.1f",
			i+1, mc.DisplayName(), mc.Kind.DisplayName(),
			mc.Params.MaxTokens, mc.Params.Temperature)
	}
	if len(models) > 1 {
		b.WriteString("\n\nEvery prompt goes to all of them; pick one reply per turn.")
	}
	return b.String()
}

func (m Model) buildDocs() string {
	var b strings.Builder

	items := m.app.Picks().Items()
	if len(items) == 0 {
		b.WriteString("No documents picked.")
	} else {
		b.WriteString("Picked documents\n")
		for i, item := range items {
			fmt.Fprintf(&b, "\n%d. %s", i+1, item.DisplayName())
		}
	}

	available, err := m.app.ListDocuments(false)
	if err == nil && len(available) > 0 {
		b.WriteString("\n\nAvailable\n")
		for _, doc := range available {
			fmt.Fprintf(&b, "\n  %s", doc)
		}
		b.WriteString("\n\nAttach with /docs add <path>.")
	}
	return b.String()
}

func (m Model) buildFormats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document format: %s\n\nAvailable:", m.app.DocFormat())
	for _, style := range docfmt.Styles() {
		marker := "  "
		if style == m.app.DocFormat() {
			marker = "* "
		}
		fmt.Fprintf(&b, "\n%s%s", marker, style)
	}
	b.WriteString("\n\nSwitch with /format <style>.")
	return b.String()
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func errBoxFor(title, message, tip string) *components.ErrorBox {
	box := components.NewErrorBox(title, message, tip)
	return &box
}

// submitErrorBox maps turn submission failures to actionable notices.
func submitErrorBox(err error) *components.ErrorBox {
	switch {
	case errors.Is(err, app.ErrNoModels):
		return errBoxFor("No models", "the roster is empty", "configure default_models or pass --model")
	case errors.Is(err, chat.ErrAwaitingSelection):
		return errBoxFor("Selection pending", "pick one response before continuing", "press 1-9 or use /select <n>")
	case errors.Is(err, app.ErrNothingToRetry):
		return errBoxFor("Nothing to retry", "no prompt has been sent yet", "")
	default:
		return errBoxFor("Turn failed", err.Error(), "")
	}
}
