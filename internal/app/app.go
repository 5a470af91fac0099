// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app holds the application state and the operations the user
// interfaces invoke on it.
//
// App is the single owner of the session: conversation history, model
// roster, document picks, usage counters, the search index, and saved-chat
// storage. The TUI and the REPL are thin layers that call App methods and
// render what comes back; neither holds session state of its own.
//
// App is not safe for concurrent use. All methods are called from the UI
// loop; the turn orchestrator's goroutines communicate only through the
// event channel, and their results enter the history via CompleteTurn on
// the UI loop again.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/chunk"
	"github.com/jeranaias/quorum/internal/config"
	"github.com/jeranaias/quorum/internal/docfmt"
	"github.com/jeranaias/quorum/internal/picks"
	"github.com/jeranaias/quorum/internal/provider"
	"github.com/jeranaias/quorum/internal/search"
	"github.com/jeranaias/quorum/internal/source"
	"github.com/jeranaias/quorum/internal/storage"
	"github.com/jeranaias/quorum/internal/turn"
	"github.com/jeranaias/quorum/internal/usage"
	"github.com/jeranaias/quorum/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoModels is returned when a turn is requested with an empty roster.
	ErrNoModels = errors.New("no models configured")

	// ErrNothingToRetry is returned by RetryTurn on an empty conversation.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrSearchUnavailable is returned when no search index is attached.
	ErrSearchUnavailable = errors.New("search index not available")
)

// =============================================================================
// RESOLVER ROUTING
// =============================================================================

// Resolvers routes model configurations to their backend resolver. A nil
// backend makes its models fail with a clear error instead of a panic.
type Resolvers struct {
	Ollama  provider.Resolver
	Bedrock provider.Resolver
}

func (r Resolvers) Resolve(cfg provider.ModelConfig) (provider.Generator, error) {
	switch cfg.Kind {
	case provider.KindOllama:
		if r.Ollama == nil {
			return nil, fmt.Errorf("ollama backend not configured")
		}
		return r.Ollama.Resolve(cfg)
	case provider.KindBedrock:
		if r.Bedrock == nil {
			return nil, fmt.Errorf("bedrock backend not configured")
		}
		return r.Bedrock.Resolve(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Kind)
	}
}

// =============================================================================
// APP
// =============================================================================

// App is the explicit session state container.
type App struct {
	cfg     *config.Store
	history *chat.History
	picks   *picks.Buffer
	models  *provider.List
	tracker *usage.Tracker
	indexer *chunk.Indexer
	index   *search.Store
	chats   *storage.ChatStore
	orch    *turn.Orchestrator
	log     *zap.Logger

	// Active document-context settings, loaded from config and adjusted
	// at runtime by /format.
	docFormat       docfmt.Style
	docInstructions string
}

// New wires an App from its collaborators. index may be nil when the
// search index could not be opened; search operations then return
// ErrSearchUnavailable but everything else works.
func New(cfg *config.Store, resolver provider.Resolver, index *search.Store, chats *storage.ChatStore, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}

	tracker := usage.NewTracker()

	return &App{
		cfg:             cfg,
		history:         chat.NewHistory(),
		picks:           &picks.Buffer{},
		models:          &provider.List{},
		tracker:         tracker,
		indexer:         chunk.NewIndexer(source.Read),
		index:           index,
		chats:           chats,
		orch:            turn.New(resolver, tracker, log, cfg.CallTimeout()),
		log:             log,
		docFormat:       cfg.DocumentFormat("documents"),
		docInstructions: cfg.DocumentInstructions("documents"),
	}
}

// Accessors for the rendering layers.

func (a *App) Config() *config.Store     { return a.cfg }
func (a *App) History() *chat.History    { return a.history }
func (a *App) Picks() *picks.Buffer      { return a.picks }
func (a *App) Models() *provider.List    { return a.models }
func (a *App) Tracker() *usage.Tracker   { return a.tracker }
func (a *App) Index() *search.Store      { return a.index }
func (a *App) Chats() *storage.ChatStore { return a.chats }
func (a *App) Indexer() *chunk.Indexer   { return a.indexer }

// DocFormat returns the active document rendering style.
func (a *App) DocFormat() docfmt.Style { return a.docFormat }

// AwaitingSelection reports whether the live turn still needs a pick.
func (a *App) AwaitingSelection() bool { return a.history.AwaitingSelection() }

// =============================================================================
// TURNS
// =============================================================================

// SubmitTurn appends the prompt to the history and dispatches it to every
// model in the roster. On the first message of a conversation the current
// document context is injected ahead of the prompt. The returned channel
// streams per-model events and closes after the terminal turn-complete
// event; the caller must drain it and pass the result to CompleteTurn.
func (a *App) SubmitTurn(ctx context.Context, prompt string) (<-chan turn.Event, error) {
	if a.models.Len() == 0 {
		return nil, ErrNoModels
	}

	if err := a.history.Submit(prompt, a.ContextBlob()); err != nil {
		return nil, err
	}

	return a.orch.Run(ctx, a.effective(), a.models.Models()), nil
}

// RetryTurn replays the effective history to the roster without appending
// a new user message. Used after per-model failures, throttling in
// particular; resubmitting the prompt would duplicate the user message.
// While a selection is pending, retry is only allowed if the live run has
// no responses at all (every model failed), as an escape hatch.
func (a *App) RetryTurn(ctx context.Context) (<-chan turn.Event, error) {
	if a.models.Len() == 0 {
		return nil, ErrNoModels
	}
	if !a.history.HasUserMessages() {
		return nil, ErrNothingToRetry
	}
	if a.history.AwaitingSelection() && len(a.history.LiveRun()) > 0 {
		return nil, chat.ErrAwaitingSelection
	}

	return a.orch.Run(ctx, a.effective(), a.models.Models()), nil
}

// CompleteTurn commits a finished turn: responses append to the history in
// roster order and the selection gate closes when the turn needs one.
func (a *App) CompleteTurn(result *turn.Result) {
	if result == nil {
		return
	}
	for _, resp := range result.Responses {
		a.history.RecordResponse(resp)
	}
	if result.NeedsSelection {
		a.history.BeginSelection()
	}
}

// SelectResponse marks one response of the live run as the canonical
// continuation. offset is zero-based within the run.
func (a *App) SelectResponse(offset int) error {
	return a.history.Select(a.history.LastUserIndex(), offset, true)
}

// ResetChat clears the conversation and its usage counters. Document picks
// survive, and because the history is empty again the next prompt gets the
// document context injected like a first message.
func (a *App) ResetChat() {
	a.history.Reset()
	a.tracker.Reset()
	a.log.Info("chat reset")
}

// effective computes the message sequence replayed to the models. The
// system prompt is dropped when it is blank after trimming.
func (a *App) effective() []chat.Message {
	sp := a.cfg.SystemPrompt()
	if strings.TrimSpace(sp) == "" {
		sp = ""
	}
	return a.history.Effective(sp)
}

// =============================================================================
// DOCUMENT CONTEXT
// =============================================================================

// ContextBlob renders the selected documents into the context text injected
// ahead of a conversation's first prompt. Empty when nothing is selected.
func (a *App) ContextBlob() string {
	items := a.picks.Items()
	if len(items) == 0 {
		return ""
	}

	docs := make([]docfmt.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, docfmt.Document{Name: it.Path, Content: it.Content})
	}
	return docfmt.FormatAll(a.docInstructions, docs, a.docFormat)
}

// SetDocFormat switches the document rendering style and persists it.
func (a *App) SetDocFormat(style docfmt.Style) error {
	if !style.Valid() {
		return fmt.Errorf("unknown format %q (valid: %s)", style, strings.Join(styleNames(), ", "))
	}
	a.docFormat = style
	a.cfg.Set(config.ScopePage("documents"), "format", string(style))
	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

func styleNames() []string {
	styles := docfmt.Styles()
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return names
}

// AddDocument reads a file from the documents directory and selects it
// whole for context injection.
func (a *App) AddDocument(relPath string) error {
	content, err := source.Read(filepath.Join(a.cfg.DocumentsDir(), relPath))
	if err != nil {
		return err
	}
	a.picks.Add(relPath, content, false)
	return nil
}

// ListDocuments returns the files under the documents directory.
func (a *App) ListDocuments(recursive bool) ([]string, error) {
	return source.List(a.cfg.DocumentsDir(), recursive, a.cfg.IgnoreSet())
}

// RemovePick drops one selected item by its position in Picks().Items().
func (a *App) RemovePick(index int) { a.picks.Remove(index) }

// ClearPicks drops the whole document selection.
func (a *App) ClearPicks() { a.picks.Clear() }

// =============================================================================
// SEARCH
// =============================================================================

// IndexDocuments chunks and indexes every markdown file under the search
// directory that has not been indexed yet. Returns the number of chunks
// written; per-file read failures are reported in the error while the
// rest of the batch proceeds.
func (a *App) IndexDocuments() (int, error) {
	if a.index == nil {
		return 0, ErrSearchUnavailable
	}

	root := a.cfg.SearchDir()
	files, err := source.List(root, true, a.cfg.IgnoreSet())
	if err != nil {
		return 0, err
	}

	var md []string
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".md") {
			md = append(md, f)
		}
	}

	n, err := a.indexer.Index(md, root, a.index)
	a.log.Info("documents indexed",
		zap.Int("files", len(md)),
		zap.Int("chunks", n),
		zap.Error(err))
	return n, err
}

// SearchDocuments runs a relevance-ranked snippet query over the index.
func (a *App) SearchDocuments(query string, topK int) ([]search.Result, error) {
	if a.index == nil {
		return nil, ErrSearchUnavailable
	}
	return a.index.Query(query, topK)
}

// AddSearchSnippet selects one search result's snippet for injection.
func (a *App) AddSearchSnippet(res search.Result) {
	a.picks.Add(res.FilePath, res.Content, true)
}

// AddSearchFile selects the entire file behind a search result, re-read
// from disk so the injected content is current rather than the version
// captured at indexing time. The whole file replaces any snippets already
// selected from the same path.
func (a *App) AddSearchFile(relPath string) error {
	content, err := source.Read(filepath.Join(a.cfg.SearchDir(), relPath))
	if err != nil {
		return err
	}
	a.picks.Add(relPath, content, false)
	return nil
}

// =============================================================================
// SAVED CHATS
// =============================================================================

// SaveChat persists the live session. name is optional; empty derives the
// chat ID from the save timestamp.
func (a *App) SaveChat(name string) (string, error) {
	if a.chats == nil {
		return "", errors.New("chat storage not available")
	}

	snap := storage.Snapshot(a.history, a.picks, string(a.docFormat), a.docInstructions)
	id, err := a.chats.Save(snap, name)
	if err != nil {
		return "", err
	}
	a.log.Info("chat saved", zap.String("chat_id", id), zap.Int("messages", len(snap.Messages)))
	return id, nil
}

// LoadChat restores a saved session over the current one. ref is a chat ID
// or a numeric list position (0 = most recent). The stored document picks
// are restored; format and instructions stay as configured.
func (a *App) LoadChat(ref string) error {
	if a.chats == nil {
		return errors.New("chat storage not available")
	}

	var (
		stored *storage.StoredChat
		err    error
	)
	if idx, convErr := strconv.Atoi(ref); convErr == nil {
		stored, err = a.chats.LoadByIndex(idx)
	} else {
		stored, err = a.chats.Load(ref)
	}
	if err != nil {
		return err
	}

	a.history.Restore(stored.HistoryMessages())
	a.picks.Restore(stored.PickItems())
	a.tracker.Reset()
	a.log.Info("chat loaded", zap.String("chat_ref", ref), zap.Int("messages", a.history.Len()))
	return nil
}

// ListChats lists saved chats, most recent first.
func (a *App) ListChats() ([]storage.ChatMeta, error) {
	if a.chats == nil {
		return nil, errors.New("chat storage not available")
	}
	return a.chats.List()
}

// =============================================================================
// MODEL ROSTER
// =============================================================================

// AddModel appends a model to the roster and returns its roster entry.
func (a *App) AddModel(kind provider.Kind, name string, params provider.Params) provider.ModelConfig {
	cfg := provider.NewModelConfig(kind, name, params)
	a.models.Add(cfg)
	a.log.Info("model added",
		zap.String("model_id", cfg.ID),
		zap.String("provider", string(kind)),
		zap.String("model", name))
	return cfg
}

// RemoveModel drops a roster entry by ID.
func (a *App) RemoveModel(id string) bool {
	removed := a.models.Remove(id)
	if removed {
		a.log.Info("model removed", zap.String("model_id", id))
	}
	return removed
}

// =============================================================================
// USAGE REPORTING
// =============================================================================

// FormatUsage renders per-model token statistics for /stats.
func (a *App) FormatUsage() string {
	snap := a.tracker.Snapshot()
	if len(snap) == 0 {
		return "No usage data available yet."
	}

	// Stable order: roster order first, then any models no longer on the
	// roster, by id.
	ids := make([]string, 0, len(snap))
	seen := make(map[string]bool, len(snap))
	for _, m := range a.models.Models() {
		if _, ok := snap[m.ID]; ok {
			ids = append(ids, m.ID)
			seen[m.ID] = true
		}
	}
	var rest []string
	for id := range snap {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	var sb strings.Builder
	sb.WriteString("Model Usage Statistics:\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	sb.WriteString(util.PadRight("Model", 28) + " " +
		util.PadRight("Input", 8) + " " +
		util.PadRight("Output", 8) + " " +
		util.PadRight("Avg tok/s", 9) + " Responses\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for _, id := range ids {
		st := snap[id]

		name := id
		if m, ok := a.models.ByID(id); ok {
			name = m.DisplayName() + " (" + m.Kind.DisplayName() + ")"
		}

		tps := "N/A"
		if v, ok := st.AvgTokensPerSec(); ok {
			tps = fmt.Sprintf("%.2f", v)
		}

		sb.WriteString(util.PadRight(util.TruncateRunes(name, 28), 28) + " " +
			util.PadRight(strconv.FormatInt(st.InputTokens, 10), 8) + " " +
			util.PadRight(strconv.FormatInt(st.OutputTokens, 10), 8) + " " +
			util.PadRight(tps, 9) + " " +
			strconv.Itoa(st.Responses) + "\n")
	}

	return sb.String()
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// DebugDump serializes the session state for troubleshooting. Message and
// pick content is reported as lengths, not text, so dumps can be shared
// without leaking conversations.
func (a *App) DebugDump() ([]byte, error) {
	type messageState struct {
		Role      string `json:"role"`
		ModelName string `json:"model_name,omitempty"`
		Provider  string `json:"provider,omitempty"`
		Selected  bool   `json:"selected"`
		Chars     int    `json:"chars"`
	}
	type pickState struct {
		Path      string `json:"path"`
		IsSnippet bool   `json:"is_snippet"`
		Chars     int    `json:"chars"`
	}
	type modelState struct {
		ID       string `json:"id"`
		Provider string `json:"provider"`
		Name     string `json:"name"`
	}

	state := struct {
		ConfigPath        string                 `json:"config_path"`
		Models            []modelState           `json:"models"`
		Messages          []messageState         `json:"messages"`
		LastUserIndex     int                    `json:"last_user_index"`
		AwaitingSelection bool                   `json:"awaiting_selection"`
		Picks             []pickState            `json:"picks"`
		DocFormat         string                 `json:"doc_format"`
		DocInstructions   string                 `json:"doc_instructions"`
		Usage             map[string]usage.Stats `json:"usage"`
	}{
		ConfigPath:        a.cfg.Path(),
		Models:            []modelState{},
		Messages:          []messageState{},
		LastUserIndex:     a.history.LastUserIndex(),
		AwaitingSelection: a.history.AwaitingSelection(),
		Picks:             []pickState{},
		DocFormat:         string(a.docFormat),
		DocInstructions:   a.docInstructions,
		Usage:             a.tracker.Snapshot(),
	}

	for _, m := range a.models.Models() {
		state.Models = append(state.Models, modelState{ID: m.ID, Provider: string(m.Kind), Name: m.Name})
	}
	for _, m := range a.history.Messages() {
		ms := messageState{
			Role:     string(m.Role()),
			Selected: m.IsSelected(),
			Chars:    len(m.Content()),
		}
		if resp, ok := m.(*chat.AssistantMessage); ok {
			ms.ModelName = resp.ModelName
			ms.Provider = resp.Provider
		}
		state.Messages = append(state.Messages, ms)
	}
	for _, it := range a.picks.Items() {
		state.Picks = append(state.Picks, pickState{Path: it.Path, IsSnippet: it.IsSnippet, Chars: len(it.Content)})
	}

	return json.MarshalIndent(state, "", "  ")
}
