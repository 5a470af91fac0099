// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat contains the conversation data model and its state machine.
//
// A History is an append-only sequence of role-tagged messages. Every user
// message is followed by a contiguous run of assistant responses, one per
// model that answered that turn. The package derives the "effective" history
// replayed to model backends (system prompt + user messages + selected
// responses) and enforces the selection gate: after a multi-model turn,
// exactly one response must be selected before the next prompt is accepted.
//
// # Key Types
//
//   - Message: sealed interface over the three role variants
//   - UserMessage / AssistantMessage / SystemMessage: tagged variants
//   - History: the conversation state machine
//
// # Usage
//
//	h := chat.NewHistory()
//	err := h.Submit("explain goroutines", contextBlob)
//	eff := h.Effective(systemPrompt)   // what models see
//	run := h.ResponsesFor(h.LastUserIndex())
//	err = h.Select(h.LastUserIndex(), 1, true)
package chat
