// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/quorum/internal/usage"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE VARIANTS
// =============================================================================

// Message is the interface over the three role variants. Messages are
// immutable once appended to a History, with one exception: the Selected
// flag on AssistantMessage, mutated only through History.Select.
type Message interface {
	Role() Role
	// Content is the model-facing text of the message.
	Content() string
	// IsSelected reports whether the message participates in the effective
	// history. User and system messages are always selected.
	IsSelected() bool
}

// SystemMessage carries the configured system prompt. It is synthesized at
// dispatch time and never stored in a History.
type SystemMessage struct {
	Text string
}

func (m *SystemMessage) Role() Role       { return RoleSystem }
func (m *SystemMessage) Content() string  { return m.Text }
func (m *SystemMessage) IsSelected() bool { return true }

// UserMessage is a prompt submitted by the user. Text is the model-facing
// content; when document context was injected, Text starts with the context
// blob and Display holds what the user actually typed.
type UserMessage struct {
	Text    string
	Display string
}

func (m *UserMessage) Role() Role       { return RoleUser }
func (m *UserMessage) Content() string  { return m.Text }
func (m *UserMessage) IsSelected() bool { return true }

// DisplayContent returns the user-facing form of the message: the literal
// prompt without any injected document context.
func (m *UserMessage) DisplayContent() string {
	if m.Display != "" {
		return m.Display
	}
	return m.Text
}

// NewUserMessage builds a user message, prepending the document context blob
// when one is given. The displayed form always remains the bare prompt.
func NewUserMessage(prompt, contextBlob string) *UserMessage {
	if contextBlob == "" {
		return &UserMessage{Text: prompt}
	}
	return &UserMessage{
		Text:    contextBlob + "\n\n" + prompt,
		Display: prompt,
	}
}

// AssistantMessage is one model's response to the preceding user message.
type AssistantMessage struct {
	Text      string
	ModelName string
	Provider  string
	ModelID   string
	Selected  bool
	Usage     *usage.Sample
}

func (m *AssistantMessage) Role() Role       { return RoleAssistant }
func (m *AssistantMessage) Content() string  { return m.Text }
func (m *AssistantMessage) IsSelected() bool { return m.Selected }
