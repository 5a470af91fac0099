// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/quorum/internal/util"
)

// =============================================================================
// STORED CHAT TYPES
// =============================================================================

// StoredChat is the on-disk form of a chat session.
type StoredChat struct {
	Messages []StoredMessage `json:"messages"`
	Metadata ChatMetadata    `json:"metadata"`
}

// ChatMetadata carries everything about a chat besides its messages.
type ChatMetadata struct {
	// Timestamp is the filename timestamp (YYYYMMDD_HHMMSS).
	Timestamp string          `json:"timestamp"`
	SavedAt   time.Time       `json:"saved_at"`
	Documents DocumentContext `json:"documents"`
}

// DocumentContext is the document selection that was active at save time.
type DocumentContext struct {
	Selected     []StoredPick `json:"selected_documents"`
	Format       string       `json:"document_format"`
	Instructions string       `json:"document_instructions,omitempty"`
}

// StoredPick is one selected document or snippet.
type StoredPick struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsSnippet bool      `json:"is_snippet,omitempty"`
}

// StoredMessage is the on-disk form of one message. Role is always set;
// the remaining fields depend on the role.
type StoredMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`

	// User messages: what the user typed, when Content carries an
	// injected document context prefix.
	DisplayContent string `json:"display_content,omitempty"`

	// Assistant messages
	ModelName string       `json:"model_name,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	ModelID   string       `json:"model_id,omitempty"`
	Selected  bool         `json:"selected,omitempty"`
	Usage     *StoredUsage `json:"usage,omitempty"`
}

// StoredUsage holds the token statistics of one assistant response.
type StoredUsage struct {
	InputTokens    int   `json:"input_tokens,omitempty"`
	OutputTokens   int   `json:"output_tokens,omitempty"`
	EvalDurationMs int64 `json:"eval_duration_ms,omitempty"`
}

// ChatMeta contains metadata for listing saved chats.
type ChatMeta struct {
	ID            string    `json:"id"`
	SavedAt       time.Time `json:"saved_at"`
	MessageCount  int       `json:"message_count"`
	DocumentCount int       `json:"document_count"`
	Preview       string    `json:"preview"` // First user prompt, truncated
}

// =============================================================================
// CHAT STORE
// =============================================================================

const (
	chatFilePrefix = "chat_"

	// TimestampLayout is the filename timestamp format: chat_20250823_141530.json.
	TimestampLayout = "20060102_150405"
)

// ChatStore handles saved-chat persistence.
type ChatStore struct {
	// BaseDir is the directory for saved chats.
	// Default: ~/.quorum/chats/
	BaseDir string

	// MaxChats limits stored chats, oldest removed first (0 = unlimited).
	MaxChats int
}

// NewChatStore creates a store rooted at the default chats directory.
func NewChatStore() (*ChatStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(homeDir, ".quorum", "chats")

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &ChatStore{BaseDir: baseDir}, nil
}

// NewChatStoreWithDir creates a store with a custom directory.
func NewChatStoreWithDir(baseDir string) (*ChatStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &ChatStore{BaseDir: baseDir}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a chat and returns its ID. The ID doubles as the filename
// stem: chat_<id>.json. With an empty name the ID is the save timestamp;
// otherwise the given name is used, overwriting any chat saved under it.
func (s *ChatStore) Save(chat *StoredChat, name string) (string, error) {
	now := time.Now()
	if chat.Metadata.Timestamp == "" {
		chat.Metadata.Timestamp = now.Format(TimestampLayout)
	}
	chat.Metadata.SavedAt = now

	id := chat.Metadata.Timestamp
	if name != "" {
		if err := validateChatName(name); err != nil {
			return "", err
		}
		id = name
	}

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.filePath(id), data, 0644); err != nil {
		return "", err
	}

	if s.MaxChats > 0 {
		s.enforceLimit()
	}

	return id, nil
}

// validateChatName rejects names that would escape the chats directory.
func validateChatName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return &ChatError{Message: "invalid chat name: " + name}
	}
	return nil
}

// enforceLimit removes the oldest chats when over the limit.
func (s *ChatStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxChats {
		return
	}

	// List is newest first; everything past the limit goes.
	for _, m := range metas[s.MaxChats:] {
		s.Delete(m.ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a saved chat by ID.
func (s *ChatStore) Load(id string) (*StoredChat, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	// Both top-level keys must be present; anything else is not a chat file.
	var probe struct {
		Messages json.RawMessage `json:"messages"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatInvalid, err)
	}
	if probe.Messages == nil || probe.Metadata == nil {
		return nil, ErrChatInvalid
	}

	var chat StoredChat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatInvalid, err)
	}

	return &chat, nil
}

// LoadByIndex loads a chat by its position in the list (0 = most recent).
func (s *ChatStore) LoadByIndex(index int) (*StoredChat, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(metas) {
		return nil, ErrChatNotFound
	}

	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved chats, most recently saved first. Files that are
// not valid chat files are skipped.
func (s *ChatStore) List() ([]ChatMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ChatMeta{}, nil
		}
		return nil, err
	}

	var metas []ChatMeta

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, chatFilePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}

		id := strings.TrimSuffix(strings.TrimPrefix(name, chatFilePrefix), ".json")

		chat, err := s.Load(id)
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, chat.meta(id))
	}

	// Most recently saved first; equal times fall back to the ID so the
	// order stays stable.
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].SavedAt.Equal(metas[j].SavedAt) {
			return metas[i].SavedAt.After(metas[j].SavedAt)
		}
		return metas[i].ID > metas[j].ID
	})

	return metas, nil
}

// SearchMessages finds saved chats whose message content contains the query
// string (case-insensitive). An empty query returns all chats.
func (s *ChatStore) SearchMessages(query string) ([]ChatMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []ChatMeta

	for _, meta := range all {
		chat, err := s.Load(meta.ID)
		if err != nil {
			continue
		}

		for _, msg := range chat.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// meta builds the listing entry for a loaded chat.
func (c *StoredChat) meta(id string) ChatMeta {
	savedAt := c.Metadata.SavedAt
	if savedAt.IsZero() {
		// Older files carry only the filename timestamp.
		if ts, err := time.ParseInLocation(TimestampLayout, c.Metadata.Timestamp, time.Local); err == nil {
			savedAt = ts
		}
	}

	return ChatMeta{
		ID:            id,
		SavedAt:       savedAt,
		MessageCount:  len(c.Messages),
		DocumentCount: len(c.Metadata.Documents.Selected),
		Preview:       c.Preview(),
	}
}

// Preview returns the first user prompt, truncated for list display. The
// displayed form is preferred so injected document context never leaks
// into listings.
func (c *StoredChat) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role != "user" {
			continue
		}
		text := msg.DisplayContent
		if text == "" {
			text = msg.Content
		}
		text = strings.ReplaceAll(text, "\n", " ")
		text = strings.ReplaceAll(text, "\r", "")
		return util.TruncateRunes(text, 80)
	}
	return ""
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a saved chat by ID.
func (s *ChatStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrChatNotFound
		}
		return err
	}

	return nil
}

// Clear removes all saved chats.
func (s *ChatStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, chatFilePrefix) && strings.HasSuffix(name, ".json") {
			os.Remove(filepath.Join(s.BaseDir, name))
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a chat ID.
func (s *ChatStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, chatFilePrefix+id+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a saved chat doesn't exist.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ErrChatInvalid is returned when a file is not a valid chat file.
var ErrChatInvalid = &ChatError{Message: "invalid chat file format"}

// ChatError represents a saved-chat error.
// It implements the error interface and can be compared using errors.Is.
type ChatError struct {
	Message string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing chat errors.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// CHAT LIST FORMATTING
// =============================================================================

const displayTimeLayout = "Jan 02, 2006 at 03:04 PM"

// DisplayTime renders a chat ID's timestamp in a human-readable form.
// IDs that are not timestamps (named saves) are returned unchanged.
func DisplayTime(id string) string {
	ts, err := time.ParseInLocation(TimestampLayout, id, time.Local)
	if err != nil {
		return id
	}
	return ts.Format(displayTimeLayout)
}

// FormatChatList formats saved chats for display in a table: position (for
// loading by index), ID, save time, message and document counts, preview.
func FormatChatList(metas []ChatMeta) string {
	if len(metas) == 0 {
		return "No saved chats found."
	}

	var sb strings.Builder
	sb.WriteString("Saved chats:\n")
	sb.WriteString(strings.Repeat("-", 78) + "\n")
	sb.WriteString(util.PadRight("#", 3) + " " +
		util.PadRight("ID", 17) + " " +
		util.PadRight("Saved", 24) + " " +
		util.PadRight("Msgs", 4) + " " +
		util.PadRight("Docs", 4) + " Preview\n")
	sb.WriteString(strings.Repeat("-", 78) + "\n")

	for i, m := range metas {
		saved := DisplayTime(m.ID)
		if !m.SavedAt.IsZero() {
			saved = m.SavedAt.Format(displayTimeLayout)
		}

		sb.WriteString(util.PadRight(strconv.Itoa(i), 3) + " " +
			util.PadRight(m.ID, 17) + " " +
			util.PadRight(saved, 24) + " " +
			util.PadRight(strconv.Itoa(m.MessageCount), 4) + " " +
			util.PadRight(strconv.Itoa(m.DocumentCount), 4) + " " +
			util.TruncateRunes(m.Preview, 30) + "\n")
	}

	return sb.String()
}
