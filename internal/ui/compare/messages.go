// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea messages bridged from the turn event channel.

package compare

import (
	"time"

	"github.com/jeranaias/quorum/internal/chat"
	"github.com/jeranaias/quorum/internal/turn"
)

// StreamTokenMsg carries one streamed fragment for a model's pane.
type StreamTokenMsg struct {
	ModelID string
	Token   string
}

// StreamDoneMsg marks one model's stream as finished.
type StreamDoneMsg struct {
	ModelID  string
	Response *chat.AssistantMessage
}

// StreamFailedMsg marks one model's stream as failed. Friendly is the
// message shown in the pane in place of a response.
type StreamFailedMsg struct {
	ModelID  string
	Friendly string
	Err      error
}

// TurnCompleteMsg closes a turn. A nil Result means the turn was cancelled
// before the orchestrator could summarize it; nothing is committed then.
type TurnCompleteMsg struct {
	Result *turn.Result
}

// StreamTickMsg drives the pane flush cadence while a turn is streaming.
type StreamTickMsg time.Time
