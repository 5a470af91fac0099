// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - the Bubble Tea model for the compare UI.

package compare

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quorum/internal/app"
	"github.com/jeranaias/quorum/internal/commands"
	"github.com/jeranaias/quorum/internal/storage"
	"github.com/jeranaias/quorum/internal/ui/components"
	"github.com/jeranaias/quorum/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State is the UI phase. It mirrors the conversation gate: StateSelecting
// is entered when a multi-model turn lands and holds until a pick.
type State int

const (
	StateReady State = iota
	StateStreaming
	StateSelecting
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the compare UI. It is a value type; the mutable collaborators
// (panes, buffers, completion state) are pointers so Update copies stay
// coherent.
type Model struct {
	app   *app.App
	theme *styles.Theme
	keys  KeyMap

	width  int
	height int
	ready  bool
	state  State

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	help     help.Model
	showHelp bool

	header components.Header
	status components.StatusBar

	registry   *commands.Registry
	parser     *commands.Parser
	completer  *commands.Completer
	completion *commands.CompletionState

	panes   []*Pane
	paneIdx map[string]*Pane

	cancelTurn context.CancelFunc
	turnStart  time.Time

	// notice holds the latest command output (help text, chat list, stats)
	// rendered between the transcript and the input line. errBox wins over
	// notice when both are set.
	notice string
	errBox *components.ErrorBox

	// transcript caches the rendered conversation; rebuilt lazily when
	// transcriptDirty is set.
	transcript      string
	transcriptDirty bool
}

// New creates the compare UI over a wired session. version goes in the
// header bar.
func New(a *app.App, version string) Model {
	theme := styles.NewTheme()

	ti := textinput.New()
	ti.Placeholder = "Ask every model..."
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	vp := viewport.New(0, 0)

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)
	completer.ChatsFn = func() []storage.ChatMeta {
		metas, err := a.ListChats()
		if err != nil {
			return nil
		}
		return metas
	}
	completer.FilesFn = func(prefix string) []string {
		docs, err := a.ListDocuments(false)
		if err != nil {
			return nil
		}
		return docs
	}

	header := components.NewHeader(version)
	header.SetModels(rosterNames(a))

	status := components.NewStatusBar()
	status.SetModels(a.Models().Len())
	status.SetFormat(string(a.DocFormat()))

	return Model{
		app:        a,
		theme:      theme,
		keys:       DefaultKeyMap(),
		viewport:   vp,
		input:      ti,
		spin:       sp,
		help:       help.New(),
		header:     header,
		status:     status,
		registry:   registry,
		parser:     commands.NewParser(registry),
		completer:  completer,
		completion: commands.NewCompletionState(),
		paneIdx:    map[string]*Pane{},

		transcriptDirty: true,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// rosterNames returns the display names of the roster, in order.
func rosterNames(a *app.App) []string {
	models := a.Models().Models()
	names := make([]string, 0, len(models))
	for _, mc := range models {
		names = append(names, mc.DisplayName())
	}
	return names
}

// syncChrome pushes the current session state into the header and status
// bar. Called whenever the roster, gate, usage, or picks change.
func (m *Model) syncChrome() {
	m.header.SetWidth(m.width)
	m.header.SetModels(rosterNames(m.app))
	m.header.SetGated(m.state == StateSelecting)

	m.status.SetWidth(m.width)
	m.status.SetModels(m.app.Models().Len())
	m.status.SetDocs(m.app.Picks().Len())
	m.status.SetFormat(string(m.app.DocFormat()))

	var in, out int
	for _, stats := range m.app.Tracker().Snapshot() {
		in += int(stats.InputTokens)
		out += int(stats.OutputTokens)
	}
	m.status.SetUsage(in, out)

	switch m.state {
	case StateStreaming:
		m.status.SetStatus(components.StatusStreaming)
	case StateSelecting:
		m.status.SetStatus(components.StatusSelecting)
	default:
		if m.errBox != nil {
			m.status.SetStatus(components.StatusError)
		} else {
			m.status.SetStatus(components.StatusReady)
		}
	}
}

// contentWidth is the usable width inside the app frame.
func (m Model) contentWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// maxBubbleWidth caps message bubbles to a readable measure.
func (m Model) maxBubbleWidth() int {
	w := m.contentWidth() * 3 / 4
	if w < 30 {
		w = 30
	}
	return w
}
