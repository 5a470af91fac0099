// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"time"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/picks"
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// SESSION CONVERSION
// =============================================================================

// Snapshot captures the live session into its persisted form. The document
// format and instructions travel with the chat so a later load restores the
// exact context settings that were active.
func Snapshot(h *chat.History, p *picks.Buffer, format, instructions string) *StoredChat {
	live := h.Messages()
	msgs := make([]StoredMessage, 0, len(live))
	for _, m := range live {
		switch msg := m.(type) {
		case *chat.UserMessage:
			msgs = append(msgs, StoredMessage{
				Role:           string(chat.RoleUser),
				Content:        msg.Text,
				DisplayContent: msg.Display,
			})
		case *chat.AssistantMessage:
			msgs = append(msgs, StoredMessage{
				Role:      string(chat.RoleAssistant),
				Content:   msg.Text,
				ModelName: msg.ModelName,
				Provider:  msg.Provider,
				ModelID:   msg.ModelID,
				Selected:  msg.Selected,
				Usage:     storedUsage(msg.Usage),
			})
		}
	}

	items := p.Items()
	selected := make([]StoredPick, 0, len(items))
	for _, it := range items {
		selected = append(selected, StoredPick{
			Path:      it.Path,
			Content:   it.Content,
			Timestamp: it.Timestamp,
			IsSnippet: it.IsSnippet,
		})
	}

	return &StoredChat{
		Messages: msgs,
		Metadata: ChatMetadata{
			Documents: DocumentContext{
				Selected:     selected,
				Format:       format,
				Instructions: instructions,
			},
		},
	}
}

// HistoryMessages rebuilds the chat message sequence from the stored form.
// Messages with unknown roles are dropped.
func (c *StoredChat) HistoryMessages() []chat.Message {
	msgs := make([]chat.Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		switch m.Role {
		case string(chat.RoleUser):
			msgs = append(msgs, &chat.UserMessage{
				Text:    m.Content,
				Display: m.DisplayContent,
			})
		case string(chat.RoleAssistant):
			msgs = append(msgs, &chat.AssistantMessage{
				Text:      m.Content,
				ModelName: m.ModelName,
				Provider:  m.Provider,
				ModelID:   m.ModelID,
				Selected:  m.Selected,
				Usage:     m.Usage.toSample(),
			})
		}
	}
	return msgs
}

// PickItems rebuilds the document selection from the stored form, keeping
// the original acceptance timestamps so restored items sort as they did.
func (c *StoredChat) PickItems() []picks.Item {
	sel := c.Metadata.Documents.Selected
	items := make([]picks.Item, 0, len(sel))
	for _, p := range sel {
		items = append(items, picks.Item{
			Path:      p.Path,
			Content:   p.Content,
			Timestamp: p.Timestamp,
			IsSnippet: p.IsSnippet,
		})
	}
	return items
}

func storedUsage(s *usage.Sample) *StoredUsage {
	if s == nil {
		return nil
	}
	return &StoredUsage{
		InputTokens:    s.InputTokens,
		OutputTokens:   s.OutputTokens,
		EvalDurationMs: s.EvalDuration.Milliseconds(),
	}
}

func (u *StoredUsage) toSample() *usage.Sample {
	if u == nil {
		return nil
	}
	return &usage.Sample{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		EvalDuration: time.Duration(u.EvalDurationMs) * time.Millisecond,
	}
}
